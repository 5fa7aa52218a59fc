package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"idle-lite/profile"
)

const (
	ModeFile     = "file"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)

const defaultLocalDBName = "idle_local.db"

type Options struct {
	Mode        string
	DataDir     string
	SQLitePath  string
	DatabaseURL string
}

// NormalizeMode maps the accepted STORE_MODE spellings onto a Mode constant.
func NormalizeMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "", ModeFile, "json", "fs":
		return ModeFile
	case ModeSQLite, "local", "sqlite3":
		return ModeSQLite
	case ModePostgres, "postgresql", "pg", "db":
		return ModePostgres
	case ModeMemory, "mem":
		return ModeMemory
	default:
		return mode
	}
}

// Open builds the backend named by opts.Mode and returns it with the
// normalized mode.
func Open(opts Options, tmpl profile.Template) (Store, string, error) {
	mode := NormalizeMode(opts.Mode)

	switch mode {
	case ModeFile:
		s, err := NewFileStore(opts.DataDir, tmpl)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	case ModeSQLite:
		path := strings.TrimSpace(opts.SQLitePath)
		if path == "" {
			path = filepath.Join(opts.DataDir, defaultLocalDBName)
		}
		s, err := NewSQLiteStore(path, tmpl)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	case ModePostgres:
		s, err := NewPostgresStore(opts.DatabaseURL, tmpl)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	case ModeMemory:
		return NewMemoryStore(tmpl), mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid STORE_MODE %q (supported: %s, %s, %s, %s)",
			mode, ModeFile, ModeSQLite, ModePostgres, ModeMemory)
	}
}
