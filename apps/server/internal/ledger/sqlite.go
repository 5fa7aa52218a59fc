package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	sqlService
}

func NewSQLiteService(dbPath string, retention int) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db, []string{
		`
CREATE TABLE IF NOT EXISTS action_ledger (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    profile TEXT NOT NULL,
    action_id TEXT NOT NULL,
    skill TEXT NOT NULL,
    xp REAL NOT NULL,
    item TEXT NOT NULL DEFAULT '',
    quantity REAL NOT NULL DEFAULT 0,
    level INTEGER NOT NULL,
    at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_action_ledger_profile ON action_ledger(profile, id DESC)`,
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{sqlService{db: db, retention: retention}}, nil
}
