package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
)

// FileStore 以目录中的 JSON 文件保存快照，一次抓取一个文件
type FileStore struct {
	dir string
	loc *time.Location
	log logrus.FieldLogger
}

var _ Store = (*FileStore)(nil)

// NewFileStore 创建文件快照存储，loc 决定文件名中时间的时区
func NewFileStore(dir string, loc *time.Location, log logrus.FieldLogger) *FileStore {
	if loc == nil {
		loc = time.Local
	}
	return &FileStore{dir: dir, loc: loc, log: log}
}

// Dir 快照目录
func (s *FileStore) Dir() string { return s.dir }

// Save 写入快照。同一秒内重复写入会覆盖之前的文件
func (s *FileStore) Save(ctx context.Context, items []model.RawItem, at time.Time) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	at = at.In(s.loc).Truncate(time.Second)
	id := FormatID(at, s.loc)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: 创建快照目录 %s: %w", ErrStorage, s.dir, err)
	}

	data, err := json.Marshal(newDocument(items, at))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	// 先写临时文件再重命名，避免读到写了一半的快照
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: 创建临时文件: %w", ErrStorage, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: 写入快照: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: 写入快照: %w", ErrStorage, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, string(id))); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: 重命名快照: %w", ErrStorage, err)
	}

	return id, nil
}

// LoadWindow 扫描目录并加载 cutoff 之后的快照。
// 目录不存在或全部损坏时返回空结果而非错误。
func (s *FileStore) LoadWindow(ctx context.Context, cutoff time.Time) ([]model.Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: 读取快照目录 %s: %w", ErrStorage, s.dir, err)
	}

	snapshots := make([]model.Snapshot, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if !isSnapshotName(name) {
			if s.log != nil {
				s.log.WithField("file", name).Debug("忽略非快照文件")
			}
			continue
		}

		ts, err := ParseID(name, s.loc)
		if err != nil {
			s.skip(&CorruptSnapshotError{Name: name, Err: err})
			continue
		}
		if ts.Before(cutoff) {
			continue
		}

		items, err := s.readItems(filepath.Join(s.dir, name))
		if err != nil {
			s.skip(&CorruptSnapshotError{Name: name, Err: err})
			continue
		}
		snapshots = append(snapshots, model.Snapshot{Timestamp: ts, Items: items})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

func (s *FileStore) readItems(path string) ([]model.RawItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func (s *FileStore) skip(err *CorruptSnapshotError) {
	if s.log == nil {
		return
	}
	s.log.WithField("file", err.Name).Warnf("跳过损坏的快照: %v", err.Err)
}
