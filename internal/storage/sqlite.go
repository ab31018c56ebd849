package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	area       TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (area, key)
);`

const sqliteUpsert = `
INSERT INTO kv(area, key, value, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type sqliteBackend struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool
}

func openSQLite(path string) (*sqliteBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection serializes transactions, which is all the
	// write volume of this daemon needs.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Area(name string) Store {
	return &sqliteArea{b: b, name: name}
}

func (b *sqliteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *sqliteBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type sqliteArea struct {
	b    *sqliteBackend
	name string
}

func (a *sqliteArea) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if a.b.isClosed() {
		return nil, false, ErrClosed
	}
	var v string
	err := a.b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE area = ? AND key = ?`, a.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(v), true, nil
}

func (a *sqliteArea) Set(ctx context.Context, key string, value json.RawMessage) error {
	if a.b.isClosed() {
		return ErrClosed
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %s: value is not valid JSON", key)
	}
	_, err := a.b.db.ExecContext(ctx, sqliteUpsert, a.name, key, string(value), time.Now().UnixMilli())
	return err
}

func (a *sqliteArea) Remove(ctx context.Context, key string) error {
	if a.b.isClosed() {
		return ErrClosed
	}
	_, err := a.b.db.ExecContext(ctx, `DELETE FROM kv WHERE area = ? AND key = ?`, a.name, key)
	return err
}

func (a *sqliteArea) Clear(ctx context.Context) error {
	if a.b.isClosed() {
		return ErrClosed
	}
	_, err := a.b.db.ExecContext(ctx, `DELETE FROM kv WHERE area = ?`, a.name)
	return err
}

func (a *sqliteArea) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if a.b.isClosed() {
		return ErrClosed
	}
	tx, err := a.b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		cur string
		ok  = true
	)
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE area = ? AND key = ?`, a.name, key).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		ok = false
	} else if err != nil {
		return err
	}
	var old json.RawMessage
	if ok {
		old = json.RawMessage(cur)
	}
	next, err := fn(old, ok)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	if !json.Valid(next) {
		return fmt.Errorf("update %s: value is not valid JSON", key)
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsert, a.name, key, string(next), time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}
