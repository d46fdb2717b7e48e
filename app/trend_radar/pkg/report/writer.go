package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	IndexFile      = "index.html"
	filePrefix     = "report_"
	fileSuffix     = ".html"
	fileTimeLayout = "20060102_150405"
)

// Writer 把渲染好的报告写入输出目录
type Writer struct {
	dir string
	loc *time.Location
}

// NewWriter loc 为 nil 时使用本地时区
func NewWriter(dir string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{dir: dir, loc: loc}
}

// Dir 输出目录
func (w *Writer) Dir() string { return w.dir }

// Write 写入 report_YYYYMMDD_HHMMSS.html，并用同样内容覆盖 index.html，返回报告路径
func (w *Writer) Write(ctx context.Context, html []byte, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录 %s: %w", w.dir, err)
	}

	name := filePrefix + at.In(w.loc).Format(fileTimeLayout) + fileSuffix
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", fmt.Errorf("写入报告 %s: %w", path, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, IndexFile), html, 0o644); err != nil {
		return "", fmt.Errorf("写入 %s: %w", IndexFile, err)
	}
	return path, nil
}

// Entry 输出目录中的一份历史报告
type Entry struct {
	Name        string    `json:"name"`
	GeneratedAt time.Time `json:"generated_at"`
	Size        int64     `json:"size"`
}

// List 按生成时间倒序列出目录中的报告，文件名无法解析的会被忽略
func List(dir string, loc *time.Location) ([]Entry, error) {
	if loc == nil {
		loc = time.Local
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		core := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		ts, err := time.ParseInLocation(fileTimeLayout, core, loc)
		if err != nil {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		out = append(out, Entry{Name: name, GeneratedAt: ts, Size: size})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}
