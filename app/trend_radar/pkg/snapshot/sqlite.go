package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore 把快照存进单个 SQLite 文件，键为抓取时间（Unix 秒）。
// 快照内容与 FileStore 的 JSON 文档完全一致。
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
	log logrus.FieldLogger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore 打开（必要时创建）数据库并建表
func NewSQLiteStore(dbPath string, loc *time.Location, log logrus.FieldLogger) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.Local
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: 创建目录 %s: %w", ErrStorage, dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开数据库: %w", ErrStorage, err)
	}
	// 单写者
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, loc: loc, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: 初始化表结构: %w", ErrStorage, err)
	}
	return s, nil
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		captured_at INTEGER PRIMARY KEY,
		body TEXT NOT NULL
	);
	`)
	return err
}

// Save 写入快照，同一秒的快照直接覆盖
func (s *SQLiteStore) Save(ctx context.Context, items []model.RawItem, at time.Time) (ID, error) {
	at = at.In(s.loc).Truncate(time.Second)

	data, err := json.Marshal(newDocument(items, at))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (captured_at, body) VALUES (?, ?)
		ON CONFLICT(captured_at) DO UPDATE SET body = excluded.body
	`, at.Unix(), string(data))
	if err != nil {
		return "", fmt.Errorf("%w: 写入快照: %w", ErrStorage, err)
	}
	return FormatID(at, s.loc), nil
}

// LoadWindow 读取 cutoff 之后的快照，内容损坏的行会被跳过
func (s *SQLiteStore) LoadWindow(ctx context.Context, cutoff time.Time) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT captured_at, body FROM snapshots
		WHERE captured_at >= ?
		ORDER BY captured_at ASC
	`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: 查询快照: %w", ErrStorage, err)
	}
	defer rows.Close()

	snapshots := []model.Snapshot{}
	for rows.Next() {
		var capturedAt int64
		var body string
		if err := rows.Scan(&capturedAt, &body); err != nil {
			return nil, fmt.Errorf("%w: 读取快照: %w", ErrStorage, err)
		}

		ts := time.Unix(capturedAt, 0).In(s.loc)
		// cutoff 带亚秒精度时，按秒截断的键可能略早于 cutoff
		if ts.Before(cutoff) {
			continue
		}

		var doc document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			if s.log != nil {
				s.log.WithField("file", string(FormatID(ts, s.loc))).Warnf("跳过损坏的快照: %v", err)
			}
			continue
		}
		snapshots = append(snapshots, model.Snapshot{Timestamp: ts, Items: doc.Items})
	}
	return snapshots, rows.Err()
}
