package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/source"
)

// Client 以 RSS/Atom 订阅作为热榜来源，条目顺序即排名
type Client struct {
	client *http.Client
	parser *gofeed.Parser
}

// NewClient 创建 RSS 客户端
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

var _ source.Fetcher = (*Client)(nil)

// Fetch 拉取并解析订阅
func (c *Client) Fetch(ctx context.Context, req *source.Request) (*source.Response, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("rss url is empty")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", "trend_radar/1.0")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss fetch error (status %d): %s", res.StatusCode, string(body))
	}

	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed failed: %w", err)
	}

	entries := make([]source.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if req.Limit > 0 && len(entries) >= req.Limit {
			break
		}
		entries = append(entries, source.Entry{
			Title: strings.TrimSpace(item.Title),
			URL:   item.Link,
		})
	}
	return &source.Response{Entries: entries}, nil
}
