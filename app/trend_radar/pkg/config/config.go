package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	Timezone         string            `yaml:"timezone"`
	Platforms        []PlatformConfig  `yaml:"platforms"`
	PlatformPriority []string          `yaml:"platform_priority"`
	Crawler          CrawlerConfig     `yaml:"crawler"`
	Snapshot         SnapshotConfig    `yaml:"snapshot"`
	LLM              LLMConfig         `yaml:"llm"`
	Concurrency      ConcurrencyConfig `yaml:"concurrency"`
	Report           ReportConfig      `yaml:"report"`
	Log              LogConfig         `yaml:"log"`
	DB               DBConfig          `yaml:"db"`
	Schedule         ScheduleConfig    `yaml:"schedule"`
	Server           ServerConfig      `yaml:"server"`

	// Path 实际加载的配置文件，为空表示使用默认配置
	Path string `yaml:"-"`
}

// PlatformConfig 热榜平台
type PlatformConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Type 数据源类型：newsnow（默认）或 rss
	Type string `yaml:"type"`
	// URL 仅 rss 类型使用
	URL string `yaml:"url"`
}

// DisplayName 未配置名称时使用 ID
func (p PlatformConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// CrawlerConfig 抓取配置
type CrawlerConfig struct {
	BaseURL         string `yaml:"base_url"`
	RequestInterval int    `yaml:"request_interval"` // 毫秒
	TopN            int    `yaml:"top_n"`
	Timeout         int    `yaml:"timeout"` // 秒
	Retries         int    `yaml:"retries"`
}

// SnapshotConfig 快照存储配置
type SnapshotConfig struct {
	// Driver file（默认）或 sqlite
	Driver        string `yaml:"driver"`
	Dir           string `yaml:"dir"`
	Path          string `yaml:"path"` // sqlite 数据库文件
	LookbackHours int    `yaml:"lookback_hours"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Insight     EngineConfig `yaml:"insight"`
	Forum       EngineConfig `yaml:"forum"`
	Temperature float32      `yaml:"temperature"`
	MaxRetries  int          `yaml:"max_retries"`
}

// EngineConfig 单个 OpenAI 兼容端点
type EngineConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// ReportConfig 报告输出配置
type ReportConfig struct {
	OutputDir   string `yaml:"output_dir"`
	Title       string `yaml:"title"`
	OpenBrowser *bool  `yaml:"open_browser"`
	// ExtractTimeout 抓取首条新闻正文的超时，秒，0 表示不抓取
	ExtractTimeout int `yaml:"extract_timeout"`
}

// ShouldOpenBrowser 未配置时默认打开
func (r ReportConfig) ShouldOpenBrowser() bool {
	return r.OpenBrowser == nil || *r.OpenBrowser
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	// MaxSize 单个日志文件上限（MB），0 表示不滚动
	MaxSize    int `yaml:"max_size"`
	MaxBackups int `yaml:"max_backups"`
	MaxAge     int `yaml:"max_age"`
	// CallerDepth 日志中调用位置显示的路径段数
	CallerDepth int `yaml:"caller_depth"`
}

// DBConfig 数据库相关配置，Host 为空表示不归档
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ScheduleConfig 定时任务配置
type ScheduleConfig struct {
	Cron    string `yaml:"cron"`
	Timeout int    `yaml:"timeout"` // 单次运行超时，分钟
}

// ServerConfig 报告浏览服务配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout int    `yaml:"timeout"` // 秒
}

// DefaultPlatforms 未配置平台时抓取的热榜
var DefaultPlatforms = []PlatformConfig{
	{ID: "weibo", Name: "微博热搜"},
	{ID: "zhihu", Name: "知乎热榜"},
	{ID: "bilibili-hot-search", Name: "B站热搜"},
	{ID: "toutiao", Name: "今日头条"},
	{ID: "douyin", Name: "抖音热榜"},
	{ID: "36kr", Name: "36氪"},
	{ID: "sspai", Name: "少数派"},
}

const (
	DefaultTimezone  = "Asia/Shanghai"
	DefaultBaseURL   = "https://newsnow.busiyi.world"
	DefaultLLMURL    = "https://api.moonshot.cn/v1"
	DefaultLLMModel  = "moonshot-v1-8k"
	DefaultConfigEnv = "CONFIG_PATH"
)

// Default 返回全部使用默认值的配置
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig 从指定路径加载配置。文件不存在时返回默认配置（Path 为空），
// 其余读取或解析错误直接返回
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s: %w", path, err)
	}
	cfg.Path = path
	ApplyDefaults(&cfg)

	return &cfg, nil
}

// ApplyDefaults 填充未配置的字段
func ApplyDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = append([]PlatformConfig(nil), DefaultPlatforms...)
	}
	for i := range cfg.Platforms {
		if cfg.Platforms[i].Type == "" {
			cfg.Platforms[i].Type = "newsnow"
		}
	}

	c := &cfg.Crawler
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestInterval <= 0 {
		c.RequestInterval = 1000
	}
	if c.TopN <= 0 {
		c.TopN = 30
	}
	if c.Timeout <= 0 {
		c.Timeout = 10
	}
	if c.Retries < 0 {
		c.Retries = 0
	}

	s := &cfg.Snapshot
	if s.Driver == "" {
		s.Driver = "file"
	}
	if s.Dir == "" {
		s.Dir = "data_langgraph"
	}
	if s.Path == "" {
		s.Path = s.Dir + "/snapshots.db"
	}
	if s.LookbackHours <= 0 {
		s.LookbackHours = 24
	}

	for _, e := range []*EngineConfig{&cfg.LLM.Insight, &cfg.LLM.Forum} {
		if e.BaseURL == "" {
			e.BaseURL = DefaultLLMURL
		}
		if e.Model == "" {
			e.Model = DefaultLLMModel
		}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxRetries <= 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Concurrency.QPS <= 0 {
		cfg.Concurrency.QPS = 1
	}
	if cfg.Concurrency.RPM <= 0 {
		cfg.Concurrency.RPM = 20
	}

	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "output_langgraph"
	}
	if cfg.Report.ExtractTimeout < 0 {
		cfg.Report.ExtractTimeout = 0
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.DB.Host != "" && cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.Schedule.Timeout <= 0 {
		cfg.Schedule.Timeout = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 10
	}
}

// Location 加载配置的时区，系统缺少时区数据时退回东八区
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// Lookback 快照回看窗口
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Snapshot.LookbackHours) * time.Hour
}

// RequestInterval 平台请求间隔
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.Crawler.RequestInterval) * time.Millisecond
}
