package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/engine"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/logger"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/scheduler"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/server"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名称
	Name = "trend_radar"
	// Version 版本号
	Version string

	flagconf  string
	flagcron  string
	flagserve bool
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf configs/config.yaml (默认 $CONFIG_PATH 或 configs/config.yaml)")
	flag.StringVar(&flagcron, "cron", "", "cron 表达式，例如 \"0 8 * * *\"；为空时只运行一次")
	flag.BoolVar(&flagserve, "serve", false, "启动报告浏览服务，监听 server.addr")
}

func main() {
	flag.Parse()

	// 1. 加载配置
	envFile, err := config.LoadEnvFile()
	if err != nil {
		log.Printf("加载 %s 失败: %v", envFile, err)
	}
	cfg, err := config.LoadConfig(config.ResolvePath(flagconf))
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	config.ApplyEnv(cfg, os.Getenv)
	if flagcron != "" {
		cfg.Schedule.Cron = flagcron
	}

	// 2. 初始化日志
	lg, err := logger.New(cfg.Log.Level, cfg.Log.File,
		logger.WithRotation(cfg.Log.MaxSize, cfg.Log.MaxBackups, cfg.Log.MaxAge),
		logger.WithCallerDepth(cfg.Log.CallerDepth),
	)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	if cfg.Path == "" {
		lg.Warn("未找到配置文件，使用默认配置")
	} else {
		lg.Infof("已加载配置文件: %s", cfg.Path)
	}
	if envFile != "" {
		lg.Infof("已加载环境变量文件: %s", envFile)
	}
	lg.Info("启动热点雷达...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 组装引擎
	eng, closeEngine, err := engine.NewFromConfig(ctx, cfg, lg)
	if err != nil {
		lg.Errorf("初始化失败: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeEngine(); err != nil {
			lg.Warnf("释放资源失败: %v", err)
		}
	}()

	runOnce := func(ctx context.Context) (string, error) {
		res, err := eng.Run(ctx, engine.RunOptions{
			ProgressCallback: func(status string, p int) {
				lg.Debugf("进度 %3d%% %s", p, status)
			},
		})
		if err != nil {
			return "", err
		}
		return res.ReportPath, nil
	}

	// 4. 单次运行
	if cfg.Schedule.Cron == "" && !flagserve {
		path, err := runOnce(ctx)
		if err != nil {
			lg.Errorf("生成报告失败: %v", err)
			closeEngine()
			os.Exit(1)
		}
		lg.Infof("✅ 热点日报生成完毕: %s", path)
		openReport(cfg, path, lg)
		return
	}

	// 5. 定时运行与报告浏览服务
	if cfg.Schedule.Cron != "" {
		s := scheduler.New(cfg.Location(), time.Duration(cfg.Schedule.Timeout)*time.Minute, lg)
		err := s.AddJob("report", cfg.Schedule.Cron, func(ctx context.Context) error {
			path, err := runOnce(ctx)
			if errors.Is(err, engine.ErrBusy) {
				lg.Warn("上一次运行尚未结束，跳过本轮")
				return nil
			}
			if err == nil {
				lg.Infof("定时报告已生成: %s", path)
			}
			return err
		})
		if err != nil {
			lg.Errorf("%v", err)
			closeEngine()
			os.Exit(1)
		}
		s.Start()
		defer func() { <-s.Stop().Done() }()
	}

	if !flagserve {
		<-ctx.Done()
		lg.Info("收到退出信号，正在停止...")
		return
	}

	manualRun := func(ctx context.Context) (string, error) {
		if cfg.Schedule.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Schedule.Timeout)*time.Minute)
			defer cancel()
		}
		return runOnce(ctx)
	}
	h := server.NewHandlers(cfg.Report.OutputDir, cfg.Location(), manualRun, lg)
	app := kratos.New(
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Context(ctx),
		kratos.Logger(server.NewLogger(lg)),
		kratos.Server(server.NewHTTPServer(cfg.Server, h)),
	)
	lg.Infof("报告浏览服务监听 %s", cfg.Server.Addr)
	if err := app.Run(); err != nil {
		lg.Errorf("服务异常退出: %v", err)
	}
}

// openReport 在本机浏览器中打开报告，容器内或配置关闭时跳过
func openReport(cfg *config.Config, path string, lg logrus.FieldLogger) {
	if !cfg.Report.ShouldOpenBrowser() {
		return
	}
	if inDocker() {
		lg.Info("检测到容器环境，跳过打开浏览器")
		return
	}
	if err := browser.OpenFile(path); err != nil {
		lg.Warnf("打开浏览器失败: %v", err)
	}
}

func inDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
