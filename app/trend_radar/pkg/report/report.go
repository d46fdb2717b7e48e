// Package report 把聚合结果与分析结果整理成可直接套模板的报告数据，并负责渲染与落盘。
package report

import (
	"strconv"
	"time"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/categorizer"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

const (
	DefaultTitle   = "舆情日报 · 热点新闻分析"
	DefaultSummary = "暂无总结"
	DefaultForum   = "暂无重大事件剖析"
)

// DefaultPlatformPriority 原始信息表格中的平台顺序，未列出的平台排在最后
var DefaultPlatformPriority = []string{
	"weibo",
	"baidu-hot",
	"douyin",
	"zhihu",
	"toutiao",
	"tieba",
	"thepaper",
	"cls",
	"ifeng",
	"wallstreetcn",
}

// Input 组装报告所需的全部输入
type Input struct {
	Title            string
	GeneratedAt      time.Time
	WindowStart      time.Time
	Items            []model.AggregatedItem
	Analysis         *model.AnalysisResult
	Forum            string
	PlatformPriority []string
}

// Report 渲染前的报告
type Report struct {
	Title       string
	GeneratedAt time.Time
	WindowStart time.Time
	TotalNews   int
	TopicCount  int
	Summary     string
	Categories  []CategoryGroup
	Forum       string
	Rows        []Row
	// Empty 没有任何条目时渲染“无数据”页面
	Empty bool
}

// CategoryGroup 一个类别及其事件
type CategoryGroup struct {
	Category taxonomy.Category
	Heat     float64
	Topics   []model.Topic
}

// Row 原始信息表格中的一行
type Row struct {
	SourceID string
	Platform string
	RankText string
	Title    string
	Link     string
	HotText  string
}

// Assemble 决定分类分组与行顺序，不做任何渲染
func Assemble(in Input) *Report {
	r := &Report{
		Title:       in.Title,
		GeneratedAt: in.GeneratedAt,
		WindowStart: in.WindowStart,
		TotalNews:   len(in.Items),
		Summary:     DefaultSummary,
		Forum:       DefaultForum,
		Categories:  []CategoryGroup{},
		Rows:        []Row{},
		Empty:       len(in.Items) == 0,
	}
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	if in.Forum != "" {
		r.Forum = in.Forum
	}

	if in.Analysis != nil {
		if in.Analysis.Summary != "" {
			r.Summary = in.Analysis.Summary
		}
		r.TopicCount = len(in.Analysis.TopTopics)

		buckets := categorizer.GroupByCategory(in.Analysis.TopTopics)
		for _, c := range categorizer.OrderCategories(buckets) {
			r.Categories = append(r.Categories, CategoryGroup{
				Category: c,
				Heat:     categorizer.RepresentativeHeat(buckets[c]),
				Topics:   buckets[c],
			})
		}
	}

	priority := in.PlatformPriority
	if priority == nil {
		priority = DefaultPlatformPriority
	}
	for _, it := range categorizer.OrderRawRows(in.Items, priority) {
		r.Rows = append(r.Rows, newRow(it))
	}
	return r
}

func newRow(it model.AggregatedItem) Row {
	row := Row{
		SourceID: it.SourceID,
		Platform: it.SourceName,
		RankText: "-",
		Title:    it.Title,
		Link:     it.MobileURL,
	}
	if row.Platform == "" {
		row.Platform = it.SourceID
	}
	if row.Platform == "" {
		row.Platform = "其他"
	}
	if it.Rank > 0 {
		row.RankText = strconv.Itoa(it.Rank)
	}
	if row.Link == "" {
		row.Link = it.URL
	}
	if it.HotValue != 0 {
		row.HotText = FormatNumber(it.HotValue)
	}
	return row
}

// FormatNumber 整数不带小数点，其余保留必要的小数位
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
