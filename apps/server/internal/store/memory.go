package store

import (
	"context"
	"encoding/json"
	"sync"

	"idle-lite/profile"
)

// MemoryStore keeps every record in process memory. Records are held as
// encoded bytes so corruption behaves exactly as it does on disk.
type MemoryStore struct {
	mu sync.Mutex

	tmpl     profile.Template
	order    []string
	records  map[string][]byte // name -> encoded data
	selected []byte
	user     []byte
}

func NewMemoryStore(tmpl profile.Template) *MemoryStore {
	return &MemoryStore{
		tmpl:    tmpl,
		records: make(map[string][]byte),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ListNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...), nil
}

func (m *MemoryStore) Read(_ context.Context, name string) (profile.Profile, bool, error) {
	m.mu.Lock()
	raw, ok := m.records[name]
	m.mu.Unlock()
	if !ok {
		return profile.Profile{}, false, nil
	}
	return readProfile(m.tmpl, name, raw), true, nil
}

func (m *MemoryStore) Write(ctx context.Context, name string, data profile.Data) error {
	raw, err := profile.Encode(data)
	if err != nil {
		return err
	}
	return m.WriteRaw(ctx, name, raw)
}

// WriteRaw stores raw bytes under name without validating them.
func (m *MemoryStore) WriteRaw(_ context.Context, name string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[name]; !exists {
		if profile.FindName(m.order, name, -1) >= 0 {
			return ErrNameTaken
		}
		m.order = append(m.order, name)
	}
	m.records[name] = append([]byte(nil), raw...)
	return nil
}

func (m *MemoryStore) Rename(_ context.Context, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.records[oldName]
	if !ok {
		return ErrNotFound
	}
	if oldName == newName {
		return nil
	}
	idx := indexOf(m.order, oldName)
	if profile.FindName(m.order, newName, idx) >= 0 {
		return ErrNameTaken
	}
	delete(m.records, oldName)
	m.records[newName] = raw
	m.order[idx] = newName
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[name]; !ok {
		return nil
	}
	delete(m.records, name)
	if idx := indexOf(m.order, name); idx >= 0 {
		m.order = append(m.order[:idx], m.order[idx+1:]...)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.records = make(map[string][]byte)
	return nil
}

func (m *MemoryStore) SelectedName(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	raw := m.selected
	m.mu.Unlock()
	name, ok := decodeSelected(raw)
	return name, ok, nil
}

func (m *MemoryStore) SetSelectedName(_ context.Context, name string) error {
	raw, err := json.Marshal(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.selected = raw
	m.mu.Unlock()
	return nil
}

// SetSelectedRaw overwrites the pointer record with raw bytes.
func (m *MemoryStore) SetSelectedRaw(raw []byte) {
	m.mu.Lock()
	m.selected = append([]byte(nil), raw...)
	m.mu.Unlock()
}

func (m *MemoryStore) ClearSelection(_ context.Context) error {
	m.mu.Lock()
	m.selected = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) UserSettings(_ context.Context) (map[string]any, error) {
	m.mu.Lock()
	raw := m.user
	m.mu.Unlock()
	return decodeUserSettings(raw), nil
}

func (m *MemoryStore) SetUserSettings(_ context.Context, settings map[string]any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.user = raw
	m.mu.Unlock()
	return nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
