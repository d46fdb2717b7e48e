package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultTopic 没有事件时的讨论话题
const DefaultTopic = "今日热点"

// Forum 围绕头号事件生成多视角的重大事件剖析
type Forum struct {
	c *client
}

// NewForum 创建事件剖析器
func NewForum(gen Generator, limiter *rate.Limiter, opts Options, log logrus.FieldLogger) *Forum {
	return &Forum{c: newClient(gen, limiter, opts, log)}
}

// Discuss 生成剖析文本。background 为可选的新闻正文，用于补充事实
func (f *Forum) Discuss(ctx context.Context, topic, background string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "你是一名资深舆情分析师，擅长从多个视角对重大舆情事件进行结构化剖析，给出清晰、简明的要点总结，而不是还原聊天记录。"},
		{Role: schema.User, Content: buildForumPrompt(topic, background)},
	}

	content, err := f.c.generate(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("事件剖析失败: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func buildForumPrompt(topic, background string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "请围绕“%s”生成一段重大事件剖析的总结性内容，而不是对话脚本。\n\n", topic)
	if background = strings.TrimSpace(background); background != "" {
		fmt.Fprintf(&sb, "参考资料（相关报道正文节选）：\n%s\n\n", background)
	}
	sb.WriteString(`要求：
1. 从三个固定视角分别进行小结，每个视角 2-4 句话：
   - Insight（深度观察）: 事件背后的深层原因、潜在影响、结构性变化。
   - Media（媒体观点）: 主流媒体与社交舆论如何报道和解读，整体情绪倾向。
   - Query（关键事实）: 目前已经确认的关键事实、尚存的不确定点。
2. 最后给出“综合判断”，用 3-5 句话说明核心风险或机遇、可能的演变方向以及需要重点关注的人群或领域。
3. 直接输出可阅读的中文分析文本，可以使用“【Insight 深度观察】”这样的小标题，不要使用 Markdown 代码块或列表标记。`)
	return sb.String()
}
