// Package spider 执行一轮抓取：依次请求每个平台，把热榜转换成带排名的原始条目。
package spider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/retry"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/source"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/source/factory"
)

// Target 一个平台及其抓取实现
type Target struct {
	Platform config.PlatformConfig
	Fetcher  source.Fetcher
}

// Options 抓取参数
type Options struct {
	Interval   time.Duration // 相邻两次请求的最小间隔
	TopN       int
	Retries    int
	RetryDelay time.Duration
}

// Spider 平台抓取器
type Spider struct {
	targets []Target
	opts    Options
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// New 创建抓取器
func New(targets []Target, opts Options, log logrus.FieldLogger) *Spider {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Spider{
		targets: targets,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// NewFromConfig 按配置中的平台列表创建抓取器
func NewFromConfig(cfg *config.Config, log logrus.FieldLogger) (*Spider, error) {
	targets := make([]Target, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		f, err := factory.NewFetcher(cfg, p)
		if err != nil {
			return nil, fmt.Errorf("平台 [%s] 初始化失败: %w", p.ID, err)
		}
		targets = append(targets, Target{Platform: p, Fetcher: f})
	}
	return New(targets, Options{
		Interval: cfg.RequestInterval(),
		TopN:     cfg.Crawler.TopN,
		Retries:  cfg.Crawler.Retries,
	}, log), nil
}

// Collect 依次抓取所有平台。单个平台失败只记录日志，不影响其他平台；
// ctx 结束时返回已抓到的部分与 ctx 的错误
func (s *Spider) Collect(ctx context.Context) ([]model.RawItem, error) {
	var items []model.RawItem
	for _, t := range s.targets {
		if err := s.limiter.Wait(ctx); err != nil {
			return items, err
		}

		p := t.Platform
		log := s.log.WithField("platform", p.ID)
		log.Infof("正在抓取: %s", p.DisplayName())

		got, err := s.fetchPlatform(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			log.Errorf("抓取平台失败 [%s]: %v", p.DisplayName(), err)
			continue
		}
		log.Debugf("平台 [%s] 返回 %d 条", p.DisplayName(), len(got))
		items = append(items, got...)
	}

	if items == nil {
		items = []model.RawItem{}
	}
	s.log.Infof("本次抓取完成，共 %d 条新闻", len(items))
	if len(items) == 0 {
		s.log.Warn("未能抓取到任何新闻，可能是 API 服务问题或网络连接问题")
	}
	return items, nil
}

func (s *Spider) fetchPlatform(ctx context.Context, t Target) ([]model.RawItem, error) {
	req := &source.Request{PlatformID: t.Platform.ID, URL: t.Platform.URL, Limit: s.opts.TopN}

	var resp *source.Response
	err := retry.Do(ctx, func(ctx context.Context) error {
		r, err := t.Fetcher.Fetch(ctx, req)
		if err != nil {
			if !retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	},
		retry.WithMaxRetries(s.opts.Retries),
		retry.WithInitialDelay(s.opts.RetryDelay),
		retry.OnRetry(func(attempt int, err error) {
			s.log.WithField("platform", t.Platform.ID).Warnf("第 %d 次重试: %v", attempt, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return toRawItems(t.Platform, resp.Entries, s.opts.TopN), nil
}

// toRawItems 排名按平台返回的位置从 1 开始计，空标题的条目被丢弃但仍占据名次
func toRawItems(p config.PlatformConfig, entries []source.Entry, topN int) []model.RawItem {
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	out := make([]model.RawItem, 0, len(entries))
	for i, e := range entries {
		if e.Title == "" {
			continue
		}
		out = append(out, model.RawItem{
			SourceID:   p.ID,
			SourceName: p.DisplayName(),
			Title:      e.Title,
			Rank:       i + 1,
			URL:        e.URL,
			MobileURL:  e.MobileURL,
			HotValue:   e.HotValue,
		})
	}
	return out
}

type temporary interface {
	Temporary() bool
}

// retryable 带 Temporary 方法的错误按其判断，其余（网络错误等）默认重试
func retryable(err error) bool {
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
