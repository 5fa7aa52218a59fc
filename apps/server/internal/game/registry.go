package game

import (
	"context"
	"errors"
	"fmt"
	"log"

	"idle-lite/apps/server/internal/store"
	"idle-lite/profile"
)

// CreateProfile writes a zeroed profile under name and selects it.
func (s *Service) CreateProfile(ctx context.Context, name string) (*GameState, error) {
	if err := profile.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.resolveLocked(ctx); err != nil {
		return nil, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if profile.FindName(roster, name, -1) >= 0 {
		return nil, duplicateName(name)
	}
	if err := s.profiles.Write(ctx, name, s.tmpl.Zero()); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, duplicateName(name)
		}
		return nil, fmt.Errorf("write profile: %w", err)
	}
	if err := s.settings.SetSelectedName(ctx, name); err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return s.stateLocked(ctx, nil)
}

// SelectProfile points the selection at the roster entry at index.
func (s *Service) SelectProfile(ctx context.Context, index *int) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.resolveLocked(ctx); err != nil {
		return nil, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if index == nil || *index < 0 || *index >= len(roster) {
		return nil, profile.ValidationError("invalid profile index")
	}
	if err := s.settings.SetSelectedName(ctx, roster[*index]); err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return s.stateLocked(ctx, nil)
}

// RenameProfile gives the selected profile a new name. The record keeps its
// roster position; a corrupt record is moved as-is and stays corrupt.
func (s *Service) RenameProfile(ctx context.Context, newName string) (*GameState, error) {
	if profile.ValidateName(newName) != nil {
		return nil, profile.ValidationError("new name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	if newName == selected {
		return s.stateLocked(ctx, nil)
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if profile.FindName(roster, newName, indexOfName(roster, selected)) >= 0 {
		return nil, duplicateName(newName)
	}

	if err := s.profiles.Rename(ctx, selected, newName); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, duplicateName(newName)
		}
		return nil, fmt.Errorf("rename profile: %w", err)
	}
	if err := s.settings.SetSelectedName(ctx, newName); err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	if err := s.ledger.RenameProfile(ctx, selected, newName); err != nil {
		log.Printf("[Ledger] rename history failed: %q -> %q err=%v", selected, newName, err)
	}
	return s.stateLocked(ctx, nil)
}

// DeleteProfile removes the selected profile and selects its predecessor.
// The last remaining profile cannot be deleted.
func (s *Service) DeleteProfile(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if len(roster) <= 1 {
		return nil, profile.ValidationError("cannot delete the last profile")
	}
	idx := indexOfName(roster, selected)

	if err := s.profiles.Delete(ctx, selected); err != nil {
		return nil, fmt.Errorf("delete profile: %w", err)
	}
	remaining, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	next := max(0, idx-1)
	if next >= len(remaining) {
		next = len(remaining) - 1
	}
	if len(remaining) > 0 {
		if err := s.settings.SetSelectedName(ctx, remaining[next]); err != nil {
			return nil, fmt.Errorf("select profile: %w", err)
		}
	}
	if err := s.ledger.DeleteProfile(ctx, selected); err != nil {
		log.Printf("[Ledger] delete history failed: %q err=%v", selected, err)
	}
	return s.stateLocked(ctx, nil)
}

// ResetProfile zeroes the selected profile's data.
func (s *Service) ResetProfile(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Write(ctx, selected, s.tmpl.Zero()); err != nil {
		return nil, fmt.Errorf("reset profile: %w", err)
	}
	return s.stateLocked(ctx, nil)
}

// FixProfile replaces the data of the profile at index with a zeroed
// template, keeping its name, whatever its previous status.
func (s *Service) FixProfile(ctx context.Context, index *int) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.resolveLocked(ctx); err != nil {
		return nil, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if index == nil || *index < 0 || *index >= len(roster) {
		return nil, profile.ValidationError("invalid index provided for fixing")
	}
	name := roster[*index]
	if err := s.profiles.Write(ctx, name, s.tmpl.Zero()); err != nil {
		return nil, fmt.Errorf("fix profile: %w", err)
	}
	log.Printf("[Profiles] Profile %q fixed", name)
	return s.stateLocked(ctx, nil)
}

// HardReset destroys every profile and the selection pointer, then restores
// the seed roster and selects its first entry.
func (s *Service) HardReset(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.profiles.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear profiles: %w", err)
	}
	if err := s.settings.ClearSelection(ctx); err != nil {
		return nil, fmt.Errorf("clear selection: %w", err)
	}
	if err := s.ledger.Clear(ctx); err != nil {
		log.Printf("[Ledger] clear history failed: %v", err)
	}
	for _, seed := range s.seeds {
		if err := s.profiles.Write(ctx, seed.Name, seed.Data.Clone()); err != nil {
			return nil, fmt.Errorf("write seed profile %q: %w", seed.Name, err)
		}
	}
	if err := s.settings.SetSelectedName(ctx, s.seeds[0].Name); err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	log.Printf("[Profiles] Hard reset, %d profile(s) restored", len(s.seeds))
	return s.stateLocked(ctx, nil)
}

func duplicateName(name string) error {
	return profile.ErrValidation("profile name '%s' already exists", name)
}
