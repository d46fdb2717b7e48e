package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Extractor 抓取网页并提取正文
type Extractor struct {
	timeout  time.Duration
	maxRunes int
}

// New maxRunes <= 0 时不截断
func New(timeout time.Duration, maxRunes int) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{timeout: timeout, maxRunes: maxRunes}
}

// Text 提取 url 的可读正文
func (e *Extractor) Text(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty url")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	article, err := readability.FromURL(url, e.timeout)
	if err != nil {
		return "", fmt.Errorf("提取正文失败 %s: %w", url, err)
	}
	return Truncate(strings.TrimSpace(article.TextContent), e.maxRunes), nil
}

// Truncate 按字符数截断，避免截断半个汉字
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
