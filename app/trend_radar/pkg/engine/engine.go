package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/aggregator"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/categorizer"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/report"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/snapshot"
)

// ForumFailed 事件剖析失败时报告中展示的文本
const ForumFailed = "讨论生成失败"

// ErrBusy 上一次运行尚未结束
var ErrBusy = errors.New("engine is already running")

type Collector interface {
	Collect(ctx context.Context) ([]model.RawItem, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, items []model.AggregatedItem) (*model.AnalysisResult, error)
}

type Discusser interface {
	Discuss(ctx context.Context, topic, background string) (string, error)
}

type TextExtractor interface {
	Text(ctx context.Context, url string) (string, error)
}

type Archiver interface {
	SaveRun(ctx context.Context, run *model.RunRecord) (int64, error)
}

type Renderer interface {
	Render(rep *report.Report) ([]byte, error)
}

type ReportWriter interface {
	Write(ctx context.Context, html []byte, at time.Time) (string, error)
}

// Deps 引擎依赖。Discusser、Extractor、Archiver 可以为 nil
type Deps struct {
	Collector Collector
	Snapshots snapshot.Store
	Analyzer  Analyzer
	Discusser Discusser
	Extractor TextExtractor
	Archiver  Archiver
	Renderer  Renderer
	Writer    ReportWriter
}

// Options 引擎参数
type Options struct {
	Lookback         time.Duration
	Location         *time.Location
	Title            string
	PlatformPriority []string
}

// Engine 核心处理引擎
type Engine struct {
	deps Deps
	opts Options
	log  logrus.FieldLogger
	now  func() time.Time

	running sync.Mutex
}

// NewEngine 创建引擎实例
func NewEngine(deps Deps, opts Options, log logrus.FieldLogger) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 24 * time.Hour
	}
	return &Engine{deps: deps, opts: opts, log: log, now: time.Now}
}

// RunOptions 运行选项
type RunOptions struct {
	ProgressCallback func(status string, progress int)
}

// Result 一次运行的产出
type Result struct {
	ReportPath string
	Report     *report.Report
	Analysis   *model.AnalysisResult
	RunID      int64
}

// Run 执行一次完整流程：抓取、快照、窗口合并、分析、剖析、渲染、归档。
// 只有渲染与写报告失败才返回错误，其余步骤失败都降级处理。
// 同一时刻只允许一次运行，重入时直接返回 ErrBusy
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if !e.running.TryLock() {
		return nil, ErrBusy
	}
	defer e.running.Unlock()

	progress := func(status string, p int) {
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(status, p)
		}
	}
	progress("starting", 0)

	now := e.now().In(e.opts.Location)
	cutoff := now.Add(-e.opts.Lookback)

	// 1. 抓取
	current, err := e.deps.Collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Errorf("抓取失败: %v", err)
	}
	progress("collected", 20)

	// 2. 保存快照
	if id, err := e.deps.Snapshots.Save(ctx, current, now); err != nil {
		e.log.Errorf("保存快照失败: %v", err)
	} else {
		e.log.Infof("快照已保存: %s", id)
	}

	// 3. 合并窗口内的快照
	window, err := e.deps.Snapshots.LoadWindow(ctx, cutoff)
	if err != nil {
		e.log.Errorf("加载历史快照失败，退回使用本次抓取结果: %v", err)
		window = nil
	}
	// 当前结果总会参与合并，窗口为空时自然退化为本次抓取结果
	merged, stats := aggregator.MergeWithStats(current, window)
	e.log.WithFields(logrus.Fields{
		"snapshots": stats.Snapshots,
		"inputs":    stats.Inputs,
		"dropped":   stats.Dropped,
	}).Infof("合并最近 %s 快照后，共 %d 条去重新闻", e.opts.Lookback, len(merged))
	progress("merged", 40)

	in := report.Input{
		Title:            e.opts.Title,
		GeneratedAt:      now,
		WindowStart:      cutoff,
		Items:            merged,
		PlatformPriority: e.opts.PlatformPriority,
	}

	// 4. 分析与剖析，没有数据时跳过
	if len(merged) == 0 {
		e.log.Warn("没有新闻数据，生成空报告")
	} else {
		in.Analysis = e.analyze(ctx, merged)
		progress("analyzed", 60)
		in.Forum = e.discuss(ctx, in.Analysis, merged)
		progress("discussed", 80)
	}

	// 5. 渲染并写入
	rep := report.Assemble(in)
	html, err := e.deps.Renderer.Render(rep)
	if err != nil {
		return nil, fmt.Errorf("渲染报告失败: %w", err)
	}
	path, err := e.deps.Writer.Write(ctx, html, now)
	if err != nil {
		return nil, fmt.Errorf("写入报告失败: %w", err)
	}
	e.log.Infof("报告已保存: %s", path)

	res := &Result{ReportPath: path, Report: rep, Analysis: in.Analysis}

	// 6. 归档
	if e.deps.Archiver != nil && !rep.Empty {
		run := &model.RunRecord{
			CreatedAt:  now,
			ReportPath: path,
			Summary:    rep.Summary,
			Forum:      in.Forum,
			Items:      merged,
		}
		if in.Analysis != nil {
			run.Topics = in.Analysis.TopTopics
		}
		if id, err := e.deps.Archiver.SaveRun(ctx, run); err != nil {
			e.log.Errorf("归档运行记录失败: %v", err)
		} else {
			res.RunID = id
			e.log.Infof("运行记录已归档: %d", id)
		}
	}

	progress("completed", 100)
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, items []model.AggregatedItem) *model.AnalysisResult {
	analysis, err := e.deps.Analyzer.Analyze(ctx, items)
	if err != nil {
		e.log.Errorf("舆情分析失败: %v", err)
	}
	if analysis == nil {
		analysis = &model.AnalysisResult{}
	}
	e.log.Infof("舆情分析完成，共 %d 个事件", len(analysis.TopTopics))
	return analysis
}

func (e *Engine) discuss(ctx context.Context, analysis *model.AnalysisResult, items []model.AggregatedItem) string {
	if e.deps.Discusser == nil {
		return ""
	}

	var topic string
	if analysis != nil && len(analysis.TopTopics) > 0 {
		topic = analysis.TopTopics[0].Topic
	}
	e.log.Infof("讨论话题: %s", topic)

	var background string
	if e.deps.Extractor != nil {
		if link := leadLink(items, e.opts.PlatformPriority); link != "" {
			text, err := e.deps.Extractor.Text(ctx, link)
			if err != nil {
				e.log.Warnf("获取背景资料失败: %v", err)
			} else {
				background = text
			}
		}
	}

	out, err := e.deps.Discusser.Discuss(ctx, topic, background)
	if err != nil {
		e.log.Errorf("事件剖析失败: %v", err)
		return ForumFailed
	}
	return out
}

// leadLink 按展示顺序取第一条有链接的新闻，优先电脑端地址
func leadLink(items []model.AggregatedItem, priority []string) string {
	if priority == nil {
		priority = report.DefaultPlatformPriority
	}
	for _, it := range categorizer.OrderRawRows(items, priority) {
		if it.URL != "" {
			return it.URL
		}
		if it.MobileURL != "" {
			return it.MobileURL
		}
	}
	return ""
}
