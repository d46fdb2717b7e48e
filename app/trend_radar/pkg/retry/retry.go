// Package retry 提供带指数退避的重试，用于平台抓取与 LLM 调用。
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Func 可重试的操作
type Func func(ctx context.Context) error

type config struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	onRetry      func(attempt int, err error)
}

// Option 重试选项
type Option func(*config)

// WithMaxRetries 最大重试次数（不含首次调用），默认 3
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialDelay 第一次重试前的等待时间，默认 1s
func WithInitialDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay 单次等待上限，默认 30s
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier 退避倍数，默认 2
func WithMultiplier(m float64) Option {
	return func(c *config) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// OnRetry 每次重试前回调，通常用来打日志
func OnRetry(fn func(attempt int, err error)) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

func defaultConfig() *config {
	return &config{
		maxRetries:   3,
		initialDelay: time.Second,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 标记不可重试的错误，Do 收到后立即返回原始错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent 是否为 Permanent 包装过的错误
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do 执行 fn，失败时按指数退避重试，直到成功、遇到 Permanent 错误、
// 次数用尽或 ctx 结束
func Do(ctx context.Context, fn Func, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lastErr := fn(ctx)
	if lastErr == nil {
		return nil
	}

	for attempt := 1; attempt <= cfg.maxRetries; attempt++ {
		var p *permanentError
		if errors.As(lastErr, &p) {
			return p.err
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, lastErr)
		}

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, cfg.maxRetries, ctx.Err())
		case <-timer.C:
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}

	var p *permanentError
	if errors.As(lastErr, &p) {
		return p.err
	}
	return fmt.Errorf("retry failed after %d attempts: %w", cfg.maxRetries+1, lastErr)
}

// backoff initialDelay * multiplier^(attempt-1)，不超过 maxDelay
func backoff(attempt int, cfg *config) time.Duration {
	delay := float64(cfg.initialDelay) * math.Pow(cfg.multiplier, float64(attempt-1))
	if delay > float64(cfg.maxDelay) {
		return cfg.maxDelay
	}
	return time.Duration(delay)
}
