// Package snapshot 持久化每轮抓取的快照，并按时间窗口读回。
//
// 快照写入后不再修改，本包也不负责清理过期快照。读取时对损坏的文件容错：
// 单个快照无法解析只会被跳过并记录告警，不影响其余快照。
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
)

// ErrStorage 快照目录无法创建或写入
var ErrStorage = errors.New("snapshot storage unavailable")

// CorruptSnapshotError 快照名称或内容无法解析
type CorruptSnapshotError struct {
	Name string
	Err  error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("corrupt snapshot %s: %v", e.Name, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }

// ID 快照标识，即文件名（不含目录），其中编码了精确到秒的抓取时间
type ID string

// Store 快照存储接口
type Store interface {
	// Save 以 at（截断到秒）为键写入一份新快照
	Save(ctx context.Context, items []model.RawItem, at time.Time) (ID, error)
	// LoadWindow 返回抓取时间不早于 cutoff 的所有可用快照，按时间升序
	LoadWindow(ctx context.Context, cutoff time.Time) ([]model.Snapshot, error)
}

const (
	idPrefix   = "snapshot_"
	idSuffix   = ".json"
	timeLayout = "20060102_150405-0700"
	// legacyLayout 早期快照不带时区偏移，按本地时区解析
	legacyLayout = "20060102_150405"
)

// FormatID 生成快照标识，例如 snapshot_20260301_083000+0800.json。
// 文件名带上 UTC 偏移，夏令时回拨的那一小时也不会撞名
func FormatID(at time.Time, loc *time.Location) ID {
	return ID(idPrefix + at.In(loc).Format(timeLayout) + idSuffix)
}

// ParseID 仅凭文件名还原抓取时间，同时兼容不带偏移的旧文件名
func ParseID(name string, loc *time.Location) (time.Time, error) {
	base := filepath.Base(name)
	if !isSnapshotName(base) {
		return time.Time{}, fmt.Errorf("not a snapshot name: %q", base)
	}
	core := strings.TrimSuffix(strings.TrimPrefix(base, idPrefix), idSuffix)
	if len(core) == len(legacyLayout) {
		return time.ParseInLocation(legacyLayout, core, loc)
	}
	ts, err := time.Parse(timeLayout, core)
	if err != nil {
		return time.Time{}, err
	}
	return ts.In(loc), nil
}

func isSnapshotName(base string) bool {
	return strings.HasPrefix(base, idPrefix) && strings.HasSuffix(base, idSuffix)
}

// document 快照的持久化格式，timestamp 仅供人工查看，权威时间以文件名为准
type document struct {
	Timestamp string          `json:"timestamp"`
	Items     []model.RawItem `json:"items"`
}

func newDocument(items []model.RawItem, at time.Time) document {
	if items == nil {
		items = []model.RawItem{}
	}
	return document{Timestamp: at.Format(time.RFC3339), Items: items}
}
