package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ModeOff      = "off"
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"

	defaultRetention = 200
	defaultListLimit = 20
	maxListLimit     = 200
)

// Entry records one applied action against one profile.
type Entry struct {
	Profile  string    `json:"profile"`
	ActionID string    `json:"action_id"`
	Skill    string    `json:"skill"`
	XP       float64   `json:"xp"`
	Item     string    `json:"item,omitempty"`
	Quantity float64   `json:"quantity,omitempty"`
	Level    int       `json:"level"` // skill level after the gain
	At       time.Time `json:"at"`
}

// Service is the action history consumed by the game service and HTTP handler.
// Entries are keyed by profile name and follow the profile through renames.
type Service interface {
	Close() error
	Append(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, profile string, limit int) ([]Entry, error)
	RenameProfile(ctx context.Context, oldName, newName string) error
	DeleteProfile(ctx context.Context, profile string) error
	Clear(ctx context.Context) error
}

type Options struct {
	Mode        string
	SQLitePath  string
	DatabaseURL string
	Retention   int
}

func NormalizeMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "", ModeOff, "none", "noop", "file":
		return ModeOff
	case ModeMemory, "mem":
		return ModeMemory
	case ModeSQLite, "local", "sqlite3":
		return ModeSQLite
	case ModePostgres, "postgresql", "pg", "db":
		return ModePostgres
	default:
		return mode
	}
}

func Open(opts Options) (Service, string, error) {
	mode := NormalizeMode(opts.Mode)
	retention := opts.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	switch mode {
	case ModeOff:
		return &noopService{}, "noop", nil
	case ModeMemory:
		return NewMemoryService(retention), mode, nil
	case ModeSQLite:
		s, err := NewSQLiteService(opts.SQLitePath, retention)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	case ModePostgres:
		s, err := NewPostgresService(opts.DatabaseURL, retention)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid LEDGER_MODE %q", mode)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

type noopService struct{}

func (n *noopService) Close() error { return nil }

func (n *noopService) Append(_ context.Context, _ Entry) error { return nil }

func (n *noopService) ListRecent(_ context.Context, _ string, _ int) ([]Entry, error) {
	return []Entry{}, nil
}

func (n *noopService) RenameProfile(_ context.Context, _, _ string) error { return nil }

func (n *noopService) DeleteProfile(_ context.Context, _ string) error { return nil }

func (n *noopService) Clear(_ context.Context) error { return nil }

type MemoryService struct {
	mu        sync.RWMutex
	retention int
	entries   map[string][]Entry // profile -> oldest first
}

func NewMemoryService(retention int) *MemoryService {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &MemoryService{
		retention: retention,
		entries:   make(map[string][]Entry),
	}
}

func (m *MemoryService) Close() error { return nil }

func (m *MemoryService) Append(_ context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.entries[e.Profile], e)
	if len(list) > m.retention {
		list = list[len(list)-m.retention:]
	}
	m.entries[e.Profile] = list
	return nil
}

func (m *MemoryService) ListRecent(_ context.Context, profile string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[profile]
	out := make([]Entry, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (m *MemoryService) RenameProfile(_ context.Context, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.entries[oldName]
	if !ok || oldName == newName {
		return nil
	}
	for i := range list {
		list[i].Profile = newName
	}
	delete(m.entries, oldName)
	m.entries[newName] = list
	return nil
}

func (m *MemoryService) DeleteProfile(_ context.Context, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, profile)
	return nil
}

func (m *MemoryService) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]Entry)
	return nil
}
