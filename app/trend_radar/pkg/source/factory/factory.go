package factory

import (
	"fmt"
	"time"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/newsnow"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/rss"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/source"
)

// NewFetcher 根据平台类型创建抓取实例
func NewFetcher(cfg *config.Config, platform config.PlatformConfig) (source.Fetcher, error) {
	timeout := time.Duration(cfg.Crawler.Timeout) * time.Second

	switch platform.Type {
	case "", "newsnow":
		if cfg.Crawler.BaseURL == "" {
			return nil, fmt.Errorf("newsnow base url is missing")
		}
		return newsnow.NewClient(cfg.Crawler.BaseURL, timeout), nil

	case "rss":
		if platform.URL == "" {
			return nil, fmt.Errorf("rss url is missing for platform %s", platform.ID)
		}
		return rss.NewClient(timeout), nil

	default:
		return nil, fmt.Errorf("unknown platform type: %s", platform.Type)
	}
}
