package analyst

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

type reply struct {
	content string
	err     error
}

type fakeModel struct {
	replies []reply
	calls   int
	inputs  [][]*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	r := f.replies[min(f.calls, len(f.replies)-1)]
	f.calls++
	f.inputs = append(f.inputs, input)
	if r.err != nil {
		return nil, r.err
	}
	return &schema.Message{Role: schema.Assistant, Content: r.content}, nil
}

var testOpts = Options{MaxRetries: 2, BaseDelay: time.Millisecond}

var items = []dm.AggregatedItem{
	{SourceID: "weibo", SourceName: "微博热搜", Title: "美以空袭伊朗"},
	{SourceID: "zhihu", Title: "考研国家线"},
}

func TestInsight_Analyze(t *testing.T) {
	fm := &fakeModel{replies: []reply{{content: "```json\n" + `{
		"top_topics": [
			{"topic": "美以空袭伊朗", "sentiment": "负面", "comment": "局势升级", "heat_score": 92.5, "category": "国际关系类舆论"},
			{"topic": "考研国家线", "sentiment": "中性", "heat_score": "60", "category": "教育"}
		],
		"summary": "国际局势紧张"
	}` + "\n```"}}}
	log, _ := test.NewNullLogger()

	res, err := NewInsight(fm, nil, testOpts, log).Analyze(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "国际局势紧张", res.Summary)
	require.Len(t, res.TopTopics, 2)
	assert.Equal(t, dm.SentimentNegative, res.TopTopics[0].Sentiment)
	assert.Equal(t, taxonomy.International, res.TopTopics[0].Category)
	assert.Equal(t, 60.0, res.TopTopics[1].HeatScore)

	require.Len(t, fm.inputs, 1)
	prompt := fm.inputs[0][1].Content
	assert.Contains(t, prompt, "- [微博热搜] 美以空袭伊朗")
	assert.Contains(t, prompt, "- [zhihu] 考研国家线")
	assert.Contains(t, prompt, `"生态环境类舆论"`)
}

func TestInsight_Analyze_NoItems(t *testing.T) {
	fm := &fakeModel{}
	log, _ := test.NewNullLogger()
	res, err := NewInsight(fm, nil, testOpts, log).Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoDataSummary, res.Summary)
	assert.Empty(t, res.TopTopics)
	assert.Zero(t, fm.calls)
}

func TestInsight_Analyze_TruncatesTopics(t *testing.T) {
	body := `{"top_topics":[`
	for i := 0; i < 10; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"topic":"t"}`
	}
	body += `],"summary":"s"}`
	log, _ := test.NewNullLogger()

	res, err := NewInsight(&fakeModel{replies: []reply{{content: body}}}, nil, testOpts, log).Analyze(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, res.TopTopics, MaxTopics)
}

func TestInsight_Analyze_RetriesBadJSONThenKeepsRaw(t *testing.T) {
	fm := &fakeModel{replies: []reply{{content: "抱歉，我无法回答"}}}
	log, hook := test.NewNullLogger()

	res, err := NewInsight(fm, nil, testOpts, log).Analyze(context.Background(), items)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDecode)
	assert.Equal(t, "抱歉，我无法回答", res.Raw)
	assert.Equal(t, 3, fm.calls)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestInsight_Analyze_RecoversAfterBadJSON(t *testing.T) {
	fm := &fakeModel{replies: []reply{{content: "{"}, {content: `{"top_topics":[],"summary":"ok"}`}}}
	log, _ := test.NewNullLogger()

	res, err := NewInsight(fm, nil, testOpts, log).Analyze(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
	assert.Equal(t, 2, fm.calls)
}

func TestForum_Discuss(t *testing.T) {
	fm := &fakeModel{replies: []reply{
		{err: errors.New("error, status code: 429, message: too many requests")},
		{content: "  【Insight 深度观察】... 综合判断: 持续关注  "},
	}}
	log, _ := test.NewNullLogger()

	out, err := NewForum(fm, nil, testOpts, log).Discuss(context.Background(), "美以空袭伊朗", "德黑兰多处爆炸")
	require.NoError(t, err)
	assert.Equal(t, "【Insight 深度观察】... 综合判断: 持续关注", out)
	assert.Equal(t, 2, fm.calls)

	prompt := fm.inputs[0][1].Content
	assert.Contains(t, prompt, "“美以空袭伊朗”")
	assert.Contains(t, prompt, "德黑兰多处爆炸")
}

func TestForum_Discuss_DefaultTopicAndPermanentError(t *testing.T) {
	fm := &fakeModel{replies: []reply{{err: errors.New("401 unauthorized")}}}
	log, _ := test.NewNullLogger()

	_, err := NewForum(fm, nil, testOpts, log).Discuss(context.Background(), " ", "")
	require.Error(t, err)
	assert.Equal(t, 1, fm.calls)
	assert.Contains(t, fm.inputs[0][1].Content, DefaultTopic)
	assert.NotContains(t, fm.inputs[0][1].Content, "参考资料")
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(" {\"a\":1} "))
}
