package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

// RawItem 某个平台某一时刻榜单上的一条热搜
type RawItem struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	Title      string  `json:"title"`
	Rank       int     `json:"rank,omitempty"` // 平台内排名，1 为榜首；0 表示缺失
	URL        string  `json:"url,omitempty"`
	MobileURL  string  `json:"mobile_url,omitempty"`
	HotValue   float64 `json:"hot_value,omitempty"` // 平台热度，未提供时为 0
}

// Key 去重键: (source_id, title)
type Key struct {
	SourceID string
	Title    string
}

// Key 返回条目的去重键，source_id 缺失时退回到展示名
func (r RawItem) Key() Key {
	sid := r.SourceID
	if sid == "" {
		sid = r.SourceName
	}
	return Key{SourceID: sid, Title: r.Title}
}

// UnmarshalJSON 宽松解析：rank/hot_value 可能是数字、字符串或 null，
// 旧快照只带 source 字段
func (r *RawItem) UnmarshalJSON(data []byte) error {
	var aux struct {
		SourceID   any `json:"source_id"`
		Source     any `json:"source"`
		SourceName any `json:"source_name"`
		Title      any `json:"title"`
		Rank       any `json:"rank"`
		URL        any `json:"url"`
		MobileURL  any `json:"mobile_url"`
		HotValue   any `json:"hot_value"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	source := looseString(aux.Source)
	*r = RawItem{
		SourceID:   looseString(aux.SourceID),
		SourceName: looseString(aux.SourceName),
		Title:      strings.TrimSpace(looseString(aux.Title)),
		Rank:       ToInt(aux.Rank),
		URL:        looseString(aux.URL),
		MobileURL:  looseString(aux.MobileURL),
		HotValue:   ToFloat(aux.HotValue),
	}
	if r.SourceID == "" {
		r.SourceID = source
	}
	if r.SourceName == "" {
		r.SourceName = source
	}
	if r.Rank < 0 {
		r.Rank = 0
	}
	if r.HotValue < 0 {
		r.HotValue = 0
	}
	return nil
}

// Snapshot 一次抓取的不可变快照
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Items     []RawItem `json:"items"`
}

// AggregatedItem 时间窗口内同一 (source_id, title) 的合并视图
type AggregatedItem struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	Title      string  `json:"title"`
	Rank       int     `json:"rank,omitempty"` // 窗口内出现过的最好排名
	URL        string  `json:"url,omitempty"`
	MobileURL  string  `json:"mobile_url,omitempty"`
	HotValue   float64 `json:"hot_value,omitempty"` // 窗口内出现过的最高热度
}

// Sentiment 情感倾向
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment 兼容中英文写法，无法识别时视为中性
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "正面", "积极":
		return SentimentPositive
	case "negative", "负面", "消极":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Label 报告中展示的中文标签
func (s Sentiment) Label() string {
	switch s {
	case SentimentPositive:
		return "正面"
	case SentimentNegative:
		return "负面"
	default:
		return "中性"
	}
}

// Topic LLM 合并后的舆情事件
type Topic struct {
	Topic     string            `json:"topic"`
	Sentiment Sentiment         `json:"sentiment"`
	Comment   string            `json:"comment"`
	HeatScore float64           `json:"heat_score"` // 0~100
	Category  taxonomy.Category `json:"category"`
}

// UnmarshalJSON 对 LLM 输出做容错：heat_score 可能是字符串或缺失，
// 超出 0~100 的值截断到边界
func (t *Topic) UnmarshalJSON(data []byte) error {
	var aux struct {
		Topic     any `json:"topic"`
		Sentiment any `json:"sentiment"`
		Comment   any `json:"comment"`
		HeatScore any `json:"heat_score"`
		Category  any `json:"category"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	heat := ToFloat(aux.HeatScore)
	switch {
	case heat < 0:
		heat = 0
	case heat > 100:
		heat = 100
	}

	*t = Topic{
		Topic:     strings.TrimSpace(looseString(aux.Topic)),
		Sentiment: ParseSentiment(looseString(aux.Sentiment)),
		Comment:   looseString(aux.Comment),
		HeatScore: heat,
		Category:  taxonomy.Category(strings.TrimSpace(looseString(aux.Category))),
	}
	return nil
}

// AnalysisResult 舆情分析结果
type AnalysisResult struct {
	TopTopics []Topic `json:"top_topics"`
	Summary   string  `json:"summary"`
	// Raw 模型输出无法解析时保留原文
	Raw string `json:"raw,omitempty"`
}

// RunRecord 一次运行的归档记录
type RunRecord struct {
	CreatedAt  time.Time
	ReportPath string
	Summary    string
	Forum      string
	Topics     []Topic
	Items      []AggregatedItem
}

func looseString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprint(x)
	default:
		return ""
	}
}
