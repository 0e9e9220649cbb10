package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteProvider 基于SQLite文件的缓存，适合没有Redis的单机部署
type SQLiteProvider struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteProvider 打开（或创建）缓存库并建表
func NewSQLiteProvider(ctx context.Context, path string) (*SQLiteProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATH 不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建缓存目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	p := &SQLiteProvider{db: db, now: time.Now}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *SQLiteProvider) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at);`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("初始化缓存表失败: %w", err)
		}
	}
	return nil
}

func (p *SQLiteProvider) Get(ctx context.Context, key string, dest any) error {
	var (
		data      []byte
		expiresAt int64
	)
	err := p.db.QueryRowContext(ctx, `SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if expiresAt > 0 && p.now().UnixMilli() >= expiresAt {
		_ = p.Delete(ctx, key)
		return ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (p *SQLiteProvider) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var expiresAt int64
	if expiration > 0 {
		expiresAt = p.now().Add(expiration).UnixMilli()
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, data, expiresAt)
	return err
}

func (p *SQLiteProvider) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// Purge 删除所有已过期条目，返回删除数量
func (p *SQLiteProvider) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at <= ?`, p.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}
