package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/analyst"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/extract"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/report"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/snapshot"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/spider"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/storage"
)

// backgroundRunes 事件剖析背景资料的最大字数
const backgroundRunes = 3000

// NewFromConfig 按配置组装引擎。返回的 close 负责释放快照库与归档库连接
func NewFromConfig(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Engine, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	loc := cfg.Location()

	sp, err := spider.NewFromConfig(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var snaps snapshot.Store
	switch cfg.Snapshot.Driver {
	case "sqlite":
		s, err := snapshot.NewSQLiteStore(cfg.Snapshot.Path, loc, log)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, s.Close)
		snaps = s
	case "file":
		snaps = snapshot.NewFileStore(cfg.Snapshot.Dir, loc, log)
	default:
		return nil, nil, fmt.Errorf("unknown snapshot driver: %s", cfg.Snapshot.Driver)
	}

	insightModel, err := analyst.NewChatModel(ctx, cfg.LLM.Insight, cfg.LLM.Temperature)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	forumModel, err := analyst.NewChatModel(ctx, cfg.LLM.Forum, cfg.LLM.Temperature)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	limiter := analyst.NewLimiter(cfg.Concurrency)
	log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limiter.Limit(), limiter.Burst())
	llmOpts := analyst.Options{MaxRetries: cfg.LLM.MaxRetries}

	renderer, err := report.NewRenderer()
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	deps := Deps{
		Collector: sp,
		Snapshots: snaps,
		Analyzer:  analyst.NewInsight(insightModel, limiter, llmOpts, log),
		Discusser: analyst.NewForum(forumModel, limiter, llmOpts, log),
		Renderer:  renderer,
		Writer:    report.NewWriter(cfg.Report.OutputDir, loc),
	}
	if cfg.Report.ExtractTimeout > 0 {
		deps.Extractor = extract.New(time.Duration(cfg.Report.ExtractTimeout)*time.Second, backgroundRunes)
	}

	// 如果配置了数据库信息，则尝试连接
	if cfg.DB.Host != "" {
		store, err := storage.NewStorage(cfg.DB)
		if err != nil {
			log.Errorf("无法连接数据库: %v. 将仅生成 HTML 文件。", err)
		} else {
			closers = append(closers, store.Close)
			deps.Archiver = store
			log.Info("已成功连接到数据库")
		}
	} else {
		log.Info("未配置数据库信息，跳过数据库连接")
	}

	e := NewEngine(deps, Options{
		Lookback:         cfg.Lookback(),
		Location:         loc,
		Title:            cfg.Report.Title,
		PlatformPriority: cfg.PlatformPriority,
	}, log)
	return e, closeAll, nil
}
