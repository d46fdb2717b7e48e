// Package server 提供浏览历史报告的 HTTP 服务
package server

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/engine"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/report"
)

// RunFunc 触发一次报告生成，返回报告路径。传入的 ctx 不受 HTTP 请求超时影响
type RunFunc func(ctx context.Context) (string, error)

// Handlers 报告浏览相关的处理函数
type Handlers struct {
	dir string
	loc *time.Location
	run RunFunc
	log logrus.FieldLogger
}

// NewHandlers 创建处理函数，run 为 nil 时不提供手动触发接口
func NewHandlers(dir string, loc *time.Location, run RunFunc, log logrus.FieldLogger) *Handlers {
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{dir: dir, loc: loc, run: run, log: log}
}

// Routes 返回挂好全部路由的 Handler
func (h *Handlers) Routes() nethttp.Handler {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/reports", h.listReports)
	mux.HandleFunc("/api/run", h.trigger)
	mux.Handle("/reports/", nethttp.StripPrefix("/reports/", nethttp.FileServer(nethttp.Dir(h.dir))))
	mux.HandleFunc("/", h.index)
	return mux
}

// NewHTTPServer 创建 kratos HTTP 服务并挂载报告路由
func NewHTTPServer(c config.ServerConfig, h *Handlers) *http.Server {
	var opts []http.ServerOption
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout > 0 {
		opts = append(opts, http.Timeout(time.Duration(c.Timeout)*time.Second))
	}

	srv := http.NewServer(opts...)
	srv.HandlePrefix("/", h.Routes())
	return srv
}

func (h *Handlers) index(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}
	content, err := os.ReadFile(filepath.Join(h.dir, report.IndexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			nethttp.Error(w, "还没有生成过报告", nethttp.StatusNotFound)
			return
		}
		h.log.Errorf("读取最新报告失败: %v", err)
		nethttp.Error(w, "读取报告失败", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func (h *Handlers) listReports(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	entries, err := report.List(h.dir, h.loc)
	if err != nil {
		h.log.Errorf("列出报告失败: %v", err)
		nethttp.Error(w, "列出报告失败", nethttp.StatusInternalServerError)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"reports": entries, "total": len(entries)})
}

func (h *Handlers) trigger(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.run == nil {
		nethttp.NotFound(w, r)
		return
	}
	if r.Method != nethttp.MethodPost {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}

	// 一次完整运行远长于请求超时，脱离请求的截止时间，超时由 run 自己控制
	path, err := h.run(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, engine.ErrBusy) {
			writeJSON(w, nethttp.StatusConflict, map[string]string{"error": "已有任务在运行"})
			return
		}
		h.log.Errorf("手动触发失败: %v", err)
		writeJSON(w, nethttp.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"report": filepath.Base(path)})
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
