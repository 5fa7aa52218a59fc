package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"idle-lite/profile"
)

const queryTimeout = 5 * time.Second

// sqlStore is the shared database/sql backend. Queries are written with '?'
// placeholders and rebound for dialects that number them.
type sqlStore struct {
	db              *sql.DB
	tmpl            profile.Template
	numbered        bool
	uniqueViolation func(error) bool
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) q(query string) string {
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

func (s *sqlStore) ListNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM profiles ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0, 8)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqlStore) Read(ctx context.Context, name string) (profile.Profile, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT data_json FROM profiles WHERE name = ?`), name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, false, nil
		}
		return profile.Profile{}, false, err
	}
	return readProfile(s.tmpl, name, []byte(raw)), true, nil
}

func (s *sqlStore) Write(ctx context.Context, name string, data profile.Data) error {
	raw, err := profile.Encode(data)
	if err != nil {
		return err
	}
	return s.WriteRaw(ctx, name, raw)
}

// WriteRaw upserts raw bytes under name without validating them.
func (s *sqlStore) WriteRaw(ctx context.Context, name string, raw []byte) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO profiles (name, name_key, data_json, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE
SET data_json = excluded.data_json,
    updated_at_ms = excluded.updated_at_ms
`), name, profile.NameKey(name), string(raw), nowMs)
	if err != nil {
		if s.uniqueViolation(err) {
			return ErrNameTaken
		}
		return err
	}
	return nil
}

func (s *sqlStore) Rename(ctx context.Context, oldName, newName string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, s.q(`
UPDATE profiles
SET name = ?,
    name_key = ?,
    updated_at_ms = ?
WHERE name = ?
`), newName, profile.NameKey(newName), nowMs, oldName)
	if err != nil {
		if s.uniqueViolation(err) {
			return ErrNameTaken
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM profiles WHERE name = ?`), name)
	return err
}

func (s *sqlStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles`)
	return err
}

func (s *sqlStore) readSetting(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value_json FROM settings WHERE key = ?`), key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(raw), nil
}

func (s *sqlStore) writeSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx, s.q(`
INSERT INTO settings (key, value_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE
SET value_json = excluded.value_json,
    updated_at_ms = excluded.updated_at_ms
`), key, string(raw), nowMs)
	return err
}

func (s *sqlStore) SelectedName(ctx context.Context) (string, bool, error) {
	raw, err := s.readSetting(ctx, settingsKeySelected)
	if err != nil {
		return "", false, err
	}
	name, ok := decodeSelected(raw)
	return name, ok, nil
}

func (s *sqlStore) SetSelectedName(ctx context.Context, name string) error {
	return s.writeSetting(ctx, settingsKeySelected, name)
}

func (s *sqlStore) ClearSelection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM settings WHERE key = ?`), settingsKeySelected)
	return err
}

func (s *sqlStore) UserSettings(ctx context.Context) (map[string]any, error) {
	raw, err := s.readSetting(ctx, settingsKeyUser)
	if err != nil {
		return nil, err
	}
	return decodeUserSettings(raw), nil
}

func (s *sqlStore) SetUserSettings(ctx context.Context, settings map[string]any) error {
	return s.writeSetting(ctx, settingsKeyUser, settings)
}

// SetSelectedRaw overwrites the pointer record with raw bytes.
func (s *sqlStore) SetSelectedRaw(ctx context.Context, raw []byte) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO settings (key, value_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE
SET value_json = excluded.value_json
`), settingsKeySelected, string(raw), time.Now().UTC().UnixMilli())
	return err
}
