package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"idle-lite/profile"
)

var (
	ErrNotFound  = errors.New("profile not found")
	ErrNameTaken = errors.New("profile name already exists")
)

// Profiles is the durable roster: one full-overwrite record per profile.
type Profiles interface {
	// ListNames returns every stored profile name in roster order.
	ListNames(ctx context.Context) ([]string, error)
	// Read loads name. ok is false when no record exists. A record that fails
	// to parse or validate comes back with StatusCorrupt and zeroed data; it is
	// not rewritten.
	Read(ctx context.Context, name string) (p profile.Profile, ok bool, err error)
	Write(ctx context.Context, name string, data profile.Data) error
	// Rename moves the stored record to newName, keeping its roster position
	// and its bytes.
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}

// Settings holds the selection pointer and the free-form user settings record.
type Settings interface {
	// SelectedName returns ok=false when the pointer is absent or unreadable.
	SelectedName(ctx context.Context) (name string, ok bool, err error)
	SetSelectedName(ctx context.Context, name string) error
	ClearSelection(ctx context.Context) error
	UserSettings(ctx context.Context) (map[string]any, error)
	SetUserSettings(ctx context.Context, settings map[string]any) error
}

// Store is one backend serving both records.
type Store interface {
	Profiles
	Settings
	Close() error
}

const (
	settingsKeySelected = "selected_profile"
	settingsKeyUser     = "user_settings"
)

func readProfile(tmpl profile.Template, name string, raw []byte) profile.Profile {
	p, err := profile.ReadRecord(tmpl, name, raw)
	if err != nil {
		log.Printf("[Store] Profile %q is corrupt: %v", name, err)
	}
	return p
}

func decodeSelected(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		log.Printf("[Store] Selection pointer unreadable, ignoring: %v", err)
		return "", false
	}
	return name, name != ""
}

func decodeUserSettings(raw []byte) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		log.Printf("[Store] User settings unreadable, returning empty: %v", err)
		return map[string]any{}
	}
	return out
}
