package ledger

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

const queryTimeout = 3 * time.Second

type sqlService struct {
	db        *sql.DB
	numbered  bool
	retention int
}

func (s *sqlService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlService) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlService) Append(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO action_ledger (
    profile, action_id, skill, xp, item, quantity, level, at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`), e.Profile, e.ActionID, e.Skill, e.XP, e.Item, e.Quantity, e.Level, e.At.UnixMilli()); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.q(`
DELETE FROM action_ledger
WHERE profile = ?
  AND id NOT IN (
      SELECT id
      FROM action_ledger
      WHERE profile = ?
      ORDER BY id DESC
      LIMIT ?
  )
`), e.Profile, e.Profile, s.retention); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *sqlService) ListRecent(ctx context.Context, profile string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT profile, action_id, skill, xp, item, quantity, level, at_ms
FROM action_ledger
WHERE profile = ?
ORDER BY id DESC
LIMIT ?
`), profile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var atMs int64
		if err := rows.Scan(&e.Profile, &e.ActionID, &e.Skill, &e.XP, &e.Item, &e.Quantity, &e.Level, &atMs); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(atMs).UTC()
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *sqlService) RenameProfile(ctx context.Context, oldName, newName string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE action_ledger SET profile = ? WHERE profile = ?`), newName, oldName)
	return err
}

func (s *sqlService) DeleteProfile(ctx context.Context, profile string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM action_ledger WHERE profile = ?`), profile)
	return err
}

func (s *sqlService) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM action_ledger`)
	return err
}

func ensureSchema(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
