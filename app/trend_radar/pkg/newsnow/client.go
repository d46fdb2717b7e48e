package newsnow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/source"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client newsnow 热榜聚合 API 客户端
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的 newsnow 客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ensure Client implements source.Fetcher
var _ source.Fetcher = (*Client)(nil)

// Response newsnow 响应结构
type Response struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	UpdatedAt any    `json:"updatedTime"`
	Items     []Item `json:"items"`
}

// Item newsnow 单条热榜。hotValue 在不同平台可能是数字或字符串
type Item struct {
	ID        any    `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	MobileURL string `json:"mobileUrl"`
	HotValue  any    `json:"hotValue"`
}

// Fetch 拉取单个平台的最新热榜
func (c *Client) Fetch(ctx context.Context, req *source.Request) (*source.Response, error) {
	u, err := url.Parse(c.baseURL + "/api/s")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("id", req.PlatformID)
	q.Set("latest", "")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	httpReq.Header.Set("Referer", c.baseURL+"/")

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
		return nil, &StatusError{Code: res.StatusCode, Body: string(body)}
	}

	var resp Response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	entries := make([]source.Entry, 0, len(resp.Items))
	for _, it := range resp.Items {
		if req.Limit > 0 && len(entries) >= req.Limit {
			break
		}
		entries = append(entries, source.Entry{
			Title:     strings.TrimSpace(it.Title),
			URL:       it.URL,
			MobileURL: it.MobileURL,
			HotValue:  model.ToFloat(it.HotValue),
		})
	}
	return &source.Response{Entries: entries}, nil
}

// StatusError 非 200 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("newsnow api error (status %d): %s", e.Code, e.Body)
}

// Temporary 限流与服务端错误值得重试
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
