package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"idle-lite/apps/server/internal/ledger"
	"idle-lite/apps/server/internal/store"
	"idle-lite/profile"
)

// Service owns every profile read-modify-write cycle. Operations are
// serialized with one mutex; nothing here coordinates separate processes.
type Service struct {
	mu sync.Mutex

	tmpl     profile.Template
	profiles store.Profiles
	settings store.Settings
	ledger   ledger.Service
	actions  map[string]Action
	seeds    []Seed
	publish  func(*GameState)
}

// Seed is one profile a hard reset restores.
type Seed struct {
	Name string       `json:"name"`
	Data profile.Data `json:"data"`
}

type Option func(*Service)

func WithLedger(l ledger.Service) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

func WithActions(actions map[string]Action) Option {
	return func(s *Service) {
		s.actions = actions
	}
}

// WithSeeds replaces the single default profile that a hard reset recreates.
func WithSeeds(seeds []Seed) Option {
	return func(s *Service) {
		s.seeds = seeds
	}
}

// WithPublisher is called with the new state after every successful
// mutation. It runs under the service lock and must not block.
func WithPublisher(fn func(*GameState)) Option {
	return func(s *Service) {
		s.publish = fn
	}
}

func NewService(tmpl profile.Template, profiles store.Profiles, settings store.Settings, opts ...Option) *Service {
	s := &Service{
		tmpl:     tmpl,
		profiles: profiles,
		settings: settings,
		ledger:   ledger.NewMemoryService(0),
		actions:  DefaultActions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.actions = supportedActions(tmpl, s.actions)
	s.seeds = validSeeds(tmpl, s.seeds)
	return s
}

// LoadSeeds reads the hard-reset roster from path. A missing file yields nil.
func LoadSeeds(path string) ([]Seed, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var seeds []Seed
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	return seeds, nil
}

// validSeeds drops seeds that would violate the template or duplicate a name;
// the result falls back to the default profile when nothing usable is left.
func validSeeds(tmpl profile.Template, seeds []Seed) []Seed {
	out := make([]Seed, 0, len(seeds))
	names := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if err := profile.ValidateName(seed.Name); err != nil {
			log.Printf("[Profiles] Ignoring seed with empty name")
			continue
		}
		if profile.FindName(names, seed.Name, -1) >= 0 {
			log.Printf("[Profiles] Ignoring duplicate seed %q", seed.Name)
			continue
		}
		if err := profile.Validate(tmpl, seed.Data); err != nil {
			log.Printf("[Profiles] Ignoring seed %q: %v", seed.Name, err)
			continue
		}
		names = append(names, seed.Name)
		out = append(out, Seed{Name: seed.Name, Data: seed.Data.Clone()})
	}
	if len(out) == 0 {
		return []Seed{{Name: profile.DefaultName, Data: tmpl.Zero()}}
	}
	return out
}

func (s *Service) Template() profile.Template { return s.tmpl }

// ResolveSelectedName returns the selected profile, repairing the pointer
// first if it is absent or dangling.
func (s *Service) ResolveSelectedName(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(ctx)
}

// resolveLocked is the only recovery path for a dangling selection: point at
// the first roster entry, or seed the default profile when the roster is empty.
// Once the pointer resolves it performs no writes.
func (s *Service) resolveLocked(ctx context.Context) (string, error) {
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return "", fmt.Errorf("list profiles: %w", err)
	}
	selected, ok, err := s.settings.SelectedName(ctx)
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	if ok && indexOfName(roster, selected) >= 0 {
		return selected, nil
	}

	var target string
	if len(roster) > 0 {
		target = roster[0]
	} else {
		target = profile.DefaultName
		if err := s.profiles.Write(ctx, target, s.tmpl.Zero()); err != nil {
			return "", fmt.Errorf("create default profile: %w", err)
		}
		log.Printf("[Profiles] Roster empty, created default profile %q", target)
	}
	if err := s.settings.SetSelectedName(ctx, target); err != nil {
		return "", fmt.Errorf("repair selection: %w", err)
	}
	if ok {
		log.Printf("[Profiles] Selection %q dangling, repointed to %q", selected, target)
	}
	return target, nil
}

// stateLocked assembles the state and hands it to the publisher.
func (s *Service) stateLocked(ctx context.Context, gain *Gain) (*GameState, error) {
	state, err := s.assembleLocked(ctx)
	if err != nil {
		return nil, err
	}
	state.RecentGain = gain
	if s.publish != nil {
		s.publish(state)
	}
	return state, nil
}

// GetSettings returns the free-form user settings record.
func (s *Service) GetSettings(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.UserSettings(ctx)
}

// SetSettings merges partial into the stored settings and returns the result.
func (s *Service) SetSettings(ctx context.Context, partial map[string]any) (map[string]any, error) {
	if len(partial) == 0 {
		return nil, profile.ValidationError("settings must be a non-empty object")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.settings.UserSettings(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range partial {
		current[k] = v
	}
	if err := s.settings.SetUserSettings(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func indexOfName(roster []string, name string) int {
	for i, n := range roster {
		if n == name {
			return i
		}
	}
	return -1
}
