package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	sqlService
}

func NewPostgresService(dsn string, retention int) (*PostgresService, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db, []string{
		`
CREATE TABLE IF NOT EXISTS action_ledger (
    id BIGSERIAL PRIMARY KEY,
    profile TEXT NOT NULL,
    action_id TEXT NOT NULL,
    skill TEXT NOT NULL,
    xp DOUBLE PRECISION NOT NULL,
    item TEXT NOT NULL DEFAULT '',
    quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
    level INTEGER NOT NULL,
    at_ms BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_action_ledger_profile ON action_ledger(profile, id DESC)`,
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresService{sqlService{db: db, numbered: true, retention: retention}}, nil
}
