package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/config"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
)

// Storage 把每次运行的报告归档到 PostgreSQL
type Storage struct {
	db *sql.DB
}

func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewStorageWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStorageWithDB 使用已有连接并建表
func NewStorageWithDB(db *sql.DB) (*Storage, error) {
	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS report_runs (
			id SERIAL PRIMARY KEY,
			report_path TEXT,
			summary TEXT,
			forum TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_topics (
			id SERIAL PRIMARY KEY,
			run_id INTEGER REFERENCES report_runs(id) ON DELETE CASCADE,
			topic TEXT,
			sentiment TEXT,
			comment TEXT,
			heat_score DOUBLE PRECISION,
			category TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_items (
			id SERIAL PRIMARY KEY,
			run_id INTEGER REFERENCES report_runs(id) ON DELETE CASCADE,
			source_id TEXT,
			source_name TEXT,
			title TEXT,
			rank INTEGER,
			url TEXT,
			mobile_url TEXT,
			hot_value DOUBLE PRECISION
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveRun 在一个事务中写入运行记录及其事件、条目，返回运行 ID
func (s *Storage) SaveRun(ctx context.Context, run *model.RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO report_runs (report_path, summary, forum, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		run.ReportPath, sanitize(run.Summary), sanitize(run.Forum), run.CreatedAt).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report run: %w", err)
	}

	for _, t := range run.Topics {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_topics (run_id, topic, sentiment, comment, heat_score, category)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, sanitize(t.Topic), string(t.Sentiment), sanitize(t.Comment), t.HeatScore, string(t.Category))
		if err != nil {
			return 0, fmt.Errorf("failed to insert topic: %w", err)
		}
	}

	for _, it := range run.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_items (run_id, source_id, source_name, title, rank, url, mobile_url, hot_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			runID, it.SourceID, it.SourceName, sanitize(it.Title), nullableRank(it.Rank), it.URL, it.MobileURL, it.HotValue)
		if err != nil {
			return 0, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func nullableRank(rank int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(rank), Valid: rank > 0}
}

// sanitize 移除无效的 UTF-8 字符与 NULL 字节，PostgreSQL 文本字段不支持
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
