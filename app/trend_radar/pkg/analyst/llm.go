// Package analyst 调用 OpenAI 兼容的大模型完成舆情归并打分与重大事件剖析。
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/retry"
)

// Generator 对话模型的最小接口，eino 的 ChatModel 满足该接口
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// NewChatModel 按端点配置创建 eino OpenAI 兼容模型
func NewChatModel(ctx context.Context, ec config.EngineConfig, temperature float32) (Generator, error) {
	t := temperature
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     ec.BaseURL,
		APIKey:      ec.APIKey,
		Model:       ec.Model,
		Temperature: &t,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return cm, nil
}

// NewLimiter 按每分钟请求数与突发量创建限流器
func NewLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), c.QPS)
}

// Options 调用参数
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
}

type client struct {
	gen     Generator
	limiter *rate.Limiter
	opts    Options
	log     logrus.FieldLogger
}

func newClient(gen Generator, limiter *rate.Limiter, opts Options, log logrus.FieldLogger) *client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	return &client{gen: gen, limiter: limiter, opts: opts, log: log}
}

// errDecode 模型输出无法解析，重新生成一次可能就好了
var errDecode = errors.New("decode llm output")

// generate 调用模型并交给 decode 处理输出。限流（429）与解析失败会退避重试，
// 其他错误立即返回。返回最后一次的模型原文
func (c *client) generate(ctx context.Context, messages []*schema.Message, decode func(content string) error) (string, error) {
	var content string
	err := retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.gen.Generate(ctx, messages)
		if err != nil {
			if isRateLimited(err) {
				return err
			}
			return retry.Permanent(err)
		}

		content = resp.Content
		if decode == nil {
			return nil
		}
		if err := decode(cleanJSON(content)); err != nil {
			return fmt.Errorf("%w: %w", errDecode, err)
		}
		return nil
	},
		retry.WithMaxRetries(c.opts.MaxRetries),
		retry.WithInitialDelay(c.opts.BaseDelay),
		retry.OnRetry(func(attempt int, err error) {
			c.log.Warnf("LLM 调用第 %d 次重试: %v", attempt, err)
		}),
	)
	return content, err
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// cleanJSON 去掉模型常带的 markdown 代码块标记
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
