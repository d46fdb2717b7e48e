package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFile 加载第一个存在的 .env 文件，已存在的环境变量不会被覆盖。
// 查找顺序：$ENV_FILE、当前目录及其向上 4 层父目录。返回加载的文件，未找到时为空
func LoadEnvFile() (string, error) {
	for _, p := range envCandidates() {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return p, err
		}
		return p, nil
	}
	return "", nil
}

func envCandidates() []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	add(os.Getenv("ENV_FILE"))
	cwd, err := os.Getwd()
	if err != nil {
		add(".env")
		return out
	}
	dir := cwd
	for i := 0; i < 5; i++ {
		add(filepath.Join(dir, ".env"))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return out
}

// ApplyEnv 用环境变量覆盖 LLM 配置。
// INSIGHT_ENGINE_* 作用于舆情分析，QUERY_ENGINE_* 作用于事件剖析，
// 两者未设置时分别回退到 KIMI_API_KEY / KIMI_BASE_URL / KIMI_MODEL_NAME（或 KIMI_MODEL）
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	kimiModel := getenv("KIMI_MODEL_NAME")
	if kimiModel == "" {
		kimiModel = getenv("KIMI_MODEL")
	}
	kimi := EngineConfig{
		APIKey:  getenv("KIMI_API_KEY"),
		BaseURL: getenv("KIMI_BASE_URL"),
		Model:   kimiModel,
	}

	apply := func(dst *EngineConfig, prefix string) {
		set := func(field *string, key, alias string) {
			if v := getenv(prefix + key); v != "" {
				*field = v
			} else if alias != "" {
				*field = alias
			}
		}
		set(&dst.APIKey, "_API_KEY", kimi.APIKey)
		set(&dst.BaseURL, "_BASE_URL", kimi.BaseURL)
		set(&dst.Model, "_MODEL_NAME", kimi.Model)
	}
	apply(&cfg.LLM.Insight, "INSIGHT_ENGINE")
	apply(&cfg.LLM.Forum, "QUERY_ENGINE")
}

// ResolvePath 命令行未指定时依次使用 $CONFIG_PATH、configs/config.yaml
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(DefaultConfigEnv); p != "" {
		return p
	}
	return "configs/config.yaml"
}
