package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer 使用内嵌模板把 Report 渲染成 HTML
type Renderer struct {
	full  *template.Template
	empty *template.Template
}

// NewRenderer 解析内嵌模板
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"num":   FormatNumber,
		"clock": func(t time.Time) string { return t.Format("01-02 15:04") },
		"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	}

	full, err := template.New("report.html").Funcs(funcs).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	empty, err := template.New("empty.html").Funcs(funcs).ParseFS(templateFS, "templates/empty.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse empty template: %w", err)
	}
	return &Renderer{full: full, empty: empty}, nil
}

// Render 渲染报告，Empty 报告使用“无数据”页面
func (r *Renderer) Render(rep *Report) ([]byte, error) {
	tmpl := r.full
	if rep.Empty {
		tmpl = r.empty
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, rep); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}
