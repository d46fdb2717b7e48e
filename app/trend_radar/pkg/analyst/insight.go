package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

// MaxTopics 单次分析最多保留的事件数
const MaxTopics = 8

// NoDataSummary 没有条目可分析时的总结
const NoDataSummary = "今日无新闻数据"

// Insight 把去重后的热榜归并成舆情事件并打分分类
type Insight struct {
	c *client
}

// NewInsight 创建舆情分析器
func NewInsight(gen Generator, limiter *rate.Limiter, opts Options, log logrus.FieldLogger) *Insight {
	return &Insight{c: newClient(gen, limiter, opts, log)}
}

// Analyze 分析热榜条目。没有条目时不调用模型；
// 模型输出始终无法解析时返回保留原文的结果和错误
func (in *Insight) Analyze(ctx context.Context, items []model.AggregatedItem) (*model.AnalysisResult, error) {
	if len(items) == 0 {
		return &model.AnalysisResult{TopTopics: []model.Topic{}, Summary: NoDataSummary}, nil
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "你是一个资深的舆情分析专家。请只输出 JSON 字符串。"},
		{Role: schema.User, Content: buildInsightPrompt(items)},
	}

	var result model.AnalysisResult
	content, err := in.c.generate(ctx, messages, func(s string) error {
		result = model.AnalysisResult{}
		return json.Unmarshal([]byte(s), &result)
	})
	if err != nil {
		return &model.AnalysisResult{TopTopics: []model.Topic{}, Raw: content}, fmt.Errorf("舆情分析失败: %w", err)
	}

	if len(result.TopTopics) > MaxTopics {
		result.TopTopics = result.TopTopics[:MaxTopics]
	}
	if result.TopTopics == nil {
		result.TopTopics = []model.Topic{}
	}
	return &result, nil
}

func buildInsightPrompt(items []model.AggregatedItem) string {
	var sb strings.Builder
	sb.WriteString("请分析以下一定时间范围内采集到的热点新闻列表：\n")
	for _, it := range items {
		name := it.SourceName
		if name == "" {
			name = it.SourceID
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", name, it.Title)
	}

	cats := make([]string, 0, taxonomy.Size())
	for _, c := range taxonomy.All() {
		cats = append(cats, `"`+c.String()+`"`)
	}

	fmt.Fprintf(&sb, `
任务（请重点合并同一事件的不同表述，并计算舆情热度值和舆情类别）：
1. 将高度相关、实际上描述同一事件的不同标题合并为一个事件。
2. 以事件为单位，提取最重要的舆情事件，最多输出 %d 个事件，尽量覆盖政治、国际、社会、文娱、科技、财经等不同领域，
   并特别关注台海局势、中美关系、AI 发展与监管、重大社会舆情、危机事件。
3. 每个事件包含以下字段：
   - topic: 具体单一事件的标题，不要使用抽象的类别或总结性表述。
   - sentiment: 情感倾向（正面/负面/中性）。
   - comment: 结合不同标题信息的简要点评。
   - heat_score: 舆情热度值（0~100，可保留一位小数）。相关标题越多、排名越靠前热度越高；
     平台权重从高到低：微博、百度热搜、抖音、知乎、今日头条、贴吧、澎湃新闻、财联社热门、凤凰网、华尔街见闻，其它平台更低。
   - category: 必须从以下选项中选择其一（使用完整名称）：[%s]
     考试、招生、分数线以及人工智能、大模型、算法监管相关内容一律归入“科教类舆论”。
4. 总结整体舆情趋势，给出 summary 字段。

请严格以 JSON 格式返回，不要包含 Markdown 代码块标记：
{"top_topics": [{"topic": "事件", "sentiment": "负面", "comment": "点评", "heat_score": 92.5, "category": "国际关系类舆论"}], "summary": "整体趋势总结"}`,
		MaxTopics, strings.Join(cats, ", "))
	return sb.String()
}
