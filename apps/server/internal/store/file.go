package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"idle-lite/profile"
)

const (
	profilesDirName  = "profiles"
	rosterFileName   = "roster.json"
	settingsFileName = "settings.json"
	userFileName     = "user_settings.json"
	recordExt        = ".json"

	// maxEscapedName bounds a record's file name well under the usual
	// 255-byte limit. Longer escapes are cut and suffixed with hashMark and
	// a digest of the full name.
	maxEscapedName = 200
	hashMark       = '~'
	hashHexLen     = 16
)

// FileStore keeps one JSON file per profile under <dir>/profiles, named by an
// escape of the profile name. roster.json records creation order and is the
// only way back to a name whose escape had to be hashed.
type FileStore struct {
	mu   sync.Mutex
	dir  string
	tmpl profile.Template
}

type settingsFile struct {
	SelectedProfile json.RawMessage `json:"selected_profile"`
}

func NewFileStore(dir string, tmpl profile.Template) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	if err := os.MkdirAll(filepath.Join(dir, profilesDirName), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, tmpl: tmpl}, nil
}

func (s *FileStore) Close() error { return nil }

// ProfilePath is where name's record lives on disk.
func (s *FileStore) ProfilePath(name string) string {
	return filepath.Join(s.dir, profilesDirName, escapeName(name)+recordExt)
}

func (s *FileStore) ListNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// listLocked reconciles roster.json with the files actually present: roster
// entries without a file are dropped, stray files are appended in lexical order.
func (s *FileStore) listLocked() ([]string, error) {
	onDisk, err := s.scanLocked()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(onDisk))
	for _, name := range s.readRosterLocked() {
		base := escapeName(name)
		if _, ok := onDisk[base]; ok {
			names = append(names, name)
			delete(onDisk, base)
		}
	}
	stray := make([]string, 0, len(onDisk))
	for base := range onDisk {
		name, err := unescapeName(base)
		if err != nil || escapeName(name) != base {
			log.Printf("[Store] Skipping unrecognised profile file %s%s", base, recordExt)
			continue
		}
		stray = append(stray, name)
	}
	sort.Strings(stray)
	return append(names, stray...), nil
}

// scanLocked returns the base names of every record file.
func (s *FileStore) scanLocked() (map[string]struct{}, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, profilesDirName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	out := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		out[strings.TrimSuffix(entry.Name(), recordExt)] = struct{}{}
	}
	return out, nil
}

func (s *FileStore) readRosterLocked() []string {
	raw, err := os.ReadFile(filepath.Join(s.dir, rosterFileName))
	if err != nil {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		log.Printf("[Store] roster.json unreadable, rebuilding from files: %v", err)
		return nil
	}
	return names
}

func (s *FileStore) writeRosterLocked(names []string) error {
	raw, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, rosterFileName), raw)
}

func (s *FileStore) Read(_ context.Context, name string) (profile.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.ProfilePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile.Profile{}, false, nil
		}
		return profile.Profile{}, false, err
	}
	return readProfile(s.tmpl, name, raw), true, nil
}

func (s *FileStore) Write(_ context.Context, name string, data profile.Data) error {
	raw, err := profile.Encode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.listLocked()
	if err != nil {
		return err
	}
	existing := indexOf(names, name)
	if existing < 0 && profile.FindName(names, name, -1) >= 0 {
		return ErrNameTaken
	}
	if err := writeFileAtomic(s.ProfilePath(name), raw); err != nil {
		return err
	}
	if existing < 0 {
		names = append(names, name)
	}
	return s.writeRosterLocked(names)
}

func (s *FileStore) Rename(_ context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.listLocked()
	if err != nil {
		return err
	}
	idx := indexOf(names, oldName)
	if idx < 0 {
		return ErrNotFound
	}
	if oldName == newName {
		return nil
	}
	if profile.FindName(names, newName, idx) >= 0 {
		return ErrNameTaken
	}
	if err := os.Rename(s.ProfilePath(oldName), s.ProfilePath(newName)); err != nil {
		return err
	}
	names[idx] = newName
	return s.writeRosterLocked(names)
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.ProfilePath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	names, err := s.listLocked()
	if err != nil {
		return err
	}
	return s.writeRosterLocked(names)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profilesDir := filepath.Join(s.dir, profilesDirName)
	if err := os.RemoveAll(profilesDir); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, rosterFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.MkdirAll(profilesDir, 0o755)
}

func (s *FileStore) SelectedName(_ context.Context) (string, bool, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, settingsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		log.Printf("[Store] Selection pointer unreadable, ignoring: %v", err)
		return "", false, nil
	}
	var sf settingsFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		log.Printf("[Store] Selection pointer unreadable, ignoring: %v", err)
		return "", false, nil
	}
	name, ok := decodeSelected(sf.SelectedProfile)
	return name, ok, nil
}

func (s *FileStore) SetSelectedName(_ context.Context, name string) error {
	rawName, err := json.Marshal(name)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(settingsFile{SelectedProfile: rawName}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, settingsFileName), raw)
}

func (s *FileStore) ClearSelection(_ context.Context) error {
	err := os.Remove(filepath.Join(s.dir, settingsFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) UserSettings(_ context.Context) (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, userFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return decodeUserSettings(raw), nil
}

func (s *FileStore) SetUserSettings(_ context.Context, settings map[string]any) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, userFileName), raw)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// escapeName keeps ASCII letters, digits, '-' and '_' and percent-encodes
// every other byte, so the result is safe on any filesystem. Escapes longer
// than maxEscapedName are truncated and end in hashMark plus a blake2b digest
// of the name; those are not reversible.
func escapeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isSafeNameByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	escaped := b.String()
	if len(escaped) <= maxEscapedName {
		return escaped
	}

	cut := maxEscapedName - 1 - hashHexLen
	// Never split a %XX triplet.
	if i := strings.LastIndexByte(escaped[:cut], '%'); i >= 0 && i+3 > cut {
		cut = i
	}
	sum := blake2b.Sum256([]byte(name))
	return escaped[:cut] + string(hashMark) + hex.EncodeToString(sum[:])[:hashHexLen]
}

func unescapeName(escaped string) (string, error) {
	return url.PathUnescape(escaped)
}

func isSafeNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}
