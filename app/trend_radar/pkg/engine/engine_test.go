package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/report"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/snapshot"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

var cst = time.FixedZone("CST", 8*3600)

type fakeCollector struct {
	items []model.RawItem
	err   error
}

func (f *fakeCollector) Collect(context.Context) ([]model.RawItem, error) { return f.items, f.err }

type fakeAnalyzer struct {
	got    []model.AggregatedItem
	result *model.AnalysisResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, items []model.AggregatedItem) (*model.AnalysisResult, error) {
	f.calls++
	f.got = items
	return f.result, f.err
}

type fakeDiscusser struct {
	topic, background string
	out               string
	err               error
	calls             int
}

func (f *fakeDiscusser) Discuss(_ context.Context, topic, background string) (string, error) {
	f.calls++
	f.topic, f.background = topic, background
	return f.out, f.err
}

type fakeExtractor struct{ url string }

func (f *fakeExtractor) Text(_ context.Context, url string) (string, error) {
	f.url = url
	return "正文", nil
}

type fakeArchiver struct {
	run *model.RunRecord
	err error
}

func (f *fakeArchiver) SaveRun(_ context.Context, run *model.RunRecord) (int64, error) {
	f.run = run
	return 9, f.err
}

type env struct {
	engine    *Engine
	store     *snapshot.FileStore
	analyzer  *fakeAnalyzer
	discusser *fakeDiscusser
	extractor *fakeExtractor
	archiver  *fakeArchiver
	outDir    string
	now       time.Time
}

func newEnv(t *testing.T, collector Collector) *env {
	t.Helper()
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	renderer, err := report.NewRenderer()
	require.NoError(t, err)

	e := &env{
		store: snapshot.NewFileStore(filepath.Join(dir, "data"), cst, log),
		analyzer: &fakeAnalyzer{result: &model.AnalysisResult{
			Summary: "整体平稳",
			TopTopics: []model.Topic{
				{Topic: "美以空袭伊朗", Sentiment: model.SentimentNegative, HeatScore: 92, Category: taxonomy.International},
			},
		}},
		discusser: &fakeDiscusser{out: "综合判断"},
		extractor: &fakeExtractor{},
		archiver:  &fakeArchiver{},
		outDir:    filepath.Join(dir, "out"),
		now:       time.Date(2026, 3, 2, 12, 0, 0, 0, cst),
	}
	e.engine = NewEngine(Deps{
		Collector: collector,
		Snapshots: e.store,
		Analyzer:  e.analyzer,
		Discusser: e.discusser,
		Extractor: e.extractor,
		Archiver:  e.archiver,
		Renderer:  renderer,
		Writer:    report.NewWriter(e.outDir, cst),
	}, Options{Lookback: 24 * time.Hour, Location: cst}, log)
	e.engine.now = func() time.Time { return e.now }
	return e
}

func TestRun_MergesWindowAndWritesReport(t *testing.T) {
	collector := &fakeCollector{items: []model.RawItem{
		{SourceID: "weibo", SourceName: "微博热搜", Title: "X", Rank: 3, HotValue: 50, URL: "https://s.weibo.com/x"},
		{SourceID: "zhihu", SourceName: "知乎热榜", Title: ""},
	}}
	e := newEnv(t, collector)
	ctx := context.Background()

	_, err := e.store.Save(ctx, []model.RawItem{{SourceID: "weibo", SourceName: "微博热搜", Title: "X", Rank: 1, HotValue: 80}}, e.now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = e.store.Save(ctx, []model.RawItem{{SourceID: "douyin", Title: "过期"}}, e.now.Add(-25*time.Hour))
	require.NoError(t, err)

	var stages []string
	res, err := e.engine.Run(ctx, RunOptions{ProgressCallback: func(s string, _ int) { stages = append(stages, s) }})
	require.NoError(t, err)

	require.Len(t, e.analyzer.got, 1)
	assert.Equal(t, model.AggregatedItem{SourceID: "weibo", SourceName: "微博热搜", Title: "X", Rank: 1, HotValue: 80, URL: "https://s.weibo.com/x"}, e.analyzer.got[0])

	assert.Equal(t, "美以空袭伊朗", e.discusser.topic)
	assert.Equal(t, "正文", e.discusser.background)
	assert.Equal(t, "https://s.weibo.com/x", e.extractor.url)

	assert.Equal(t, filepath.Join(e.outDir, "report_20260302_120000.html"), res.ReportPath)
	assert.FileExists(t, filepath.Join(e.outDir, report.IndexFile))
	html, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "综合判断")
	assert.Contains(t, string(html), "热度 80")

	assert.False(t, res.Report.Empty)
	assert.Equal(t, 1, res.Report.TotalNews)
	assert.Equal(t, int64(9), res.RunID)
	require.NotNil(t, e.archiver.run)
	assert.Equal(t, "整体平稳", e.archiver.run.Summary)
	assert.Len(t, e.archiver.run.Topics, 1)

	assert.Equal(t, []string{"starting", "collected", "merged", "analyzed", "discussed", "completed"}, stages)

	// 本次抓取也被保存为快照
	snaps, err := e.store.LoadWindow(ctx, e.now.Add(-time.Second))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Items, 2)
}

func TestRun_EmptyDataSkipsLLM(t *testing.T) {
	e := newEnv(t, &fakeCollector{err: errors.New("network down")})

	res, err := e.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Report.Empty)
	assert.Zero(t, e.analyzer.calls)
	assert.Zero(t, e.discusser.calls)
	assert.Nil(t, e.archiver.run)

	html, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "今日无新闻数据")
}

func TestRun_AnalysisAndForumFailuresDegrade(t *testing.T) {
	e := newEnv(t, &fakeCollector{items: []model.RawItem{{SourceID: "weibo", Title: "X", Rank: 1}}})
	e.analyzer.result = &model.AnalysisResult{Raw: "not json"}
	e.analyzer.err = errors.New("bad json")
	e.discusser.err = errors.New("401")
	e.archiver.err = errors.New("db down")

	res, err := e.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, report.DefaultSummary, res.Report.Summary)
	assert.Equal(t, ForumFailed, res.Report.Forum)
	assert.Empty(t, e.discusser.topic)
	assert.Zero(t, res.RunID)
}

func TestRun_StorageErrorDoesNotAbort(t *testing.T) {
	e := newEnv(t, &fakeCollector{items: []model.RawItem{{SourceID: "weibo", Title: "X", Rank: 1}}})
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	e.engine.deps.Snapshots = snapshot.NewFileStore(filepath.Join(blocker, "data"), cst, nil)

	res, err := e.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.TotalNews)
}

func TestLeadLink(t *testing.T) {
	items := []model.AggregatedItem{
		{SourceID: "zhihu", Title: "z", Rank: 1, URL: "https://zhihu/1"},
		{SourceID: "weibo", Title: "w2", Rank: 2, MobileURL: "https://m.weibo/2"},
		{SourceID: "weibo", Title: "w1", Rank: 1},
	}
	assert.Equal(t, "https://m.weibo/2", leadLink(items, nil))
	assert.Equal(t, "https://zhihu/1", leadLink(items, []string{"zhihu"}))
	assert.Empty(t, leadLink(nil, nil))
}

type blockingCollector struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCollector) Collect(context.Context) ([]model.RawItem, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	collector := &blockingCollector{started: make(chan struct{}), release: make(chan struct{})}
	e := newEnv(t, collector)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.engine.Run(context.Background(), RunOptions{})
		errCh <- err
	}()
	<-collector.started

	_, err := e.engine.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrBusy)

	close(collector.release)
	require.NoError(t, <-errCh)
}
