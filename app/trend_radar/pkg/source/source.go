package source

import "context"

// Fetcher 定义通用的热榜抓取接口
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// Request 抓取请求
type Request struct {
	PlatformID string
	URL        string // rss 等需要完整地址的数据源
	Limit      int    // 0 表示不限制
}

// Response 抓取结果，Entries 保持平台给出的顺序
type Response struct {
	Entries []Entry
}

// Entry 单条热榜
type Entry struct {
	Title     string
	URL       string
	MobileURL string
	HotValue  float64
}
