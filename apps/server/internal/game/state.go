package game

import (
	"context"
	"fmt"

	"idle-lite/leveling"
	"idle-lite/profile"
)

// GameState is the canonical payload returned by reads and mutations alike.
type GameState struct {
	Profiles      []ProfileView `json:"profiles"`
	SelectedIndex int           `json:"selected_profile_index"`
	RecentGain    *Gain         `json:"recent_gain,omitempty"`
}

type ProfileView struct {
	Name       string         `json:"name"`
	Data       ViewData       `json:"data"`
	TotalLevel int            `json:"total_level"`
	Stats      map[string]int `json:"stats,omitempty"`
	Status     profile.Status `json:"status"`
}

type ViewData struct {
	Skills    map[string]SkillView `json:"skills"`
	Inventory map[string]float64   `json:"inventory"`
}

type SkillView = leveling.SkillProgress

// Selected returns the view at SelectedIndex.
func (s *GameState) Selected() (ProfileView, bool) {
	if s == nil || s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Profiles) {
		return ProfileView{}, false
	}
	return s.Profiles[s.SelectedIndex], true
}

func buildView(tmpl profile.Template, p profile.Profile) ProfileView {
	if p.Status != profile.StatusOK {
		return ProfileView{
			Name: p.Name,
			Data: ViewData{
				Skills:    map[string]SkillView{},
				Inventory: map[string]float64{},
			},
			Status: profile.StatusCorrupt,
		}
	}

	sum := leveling.Summarize(tmpl.Stats, p.Data.Skills)
	view := ProfileView{
		Name: p.Name,
		Data: ViewData{
			Skills:    sum.Skills,
			Inventory: make(map[string]float64, len(p.Data.Inventory)),
		},
		TotalLevel: sum.TotalLevel,
		Stats:      sum.Stats,
		Status:     profile.StatusOK,
	}
	for item, qty := range p.Data.Inventory {
		view.Data.Inventory[item] = qty
	}
	return view
}

// assembleLocked reads every profile in roster order and derives its view.
// The selection pointer is resolved first so an empty roster gets seeded.
func (s *Service) assembleLocked(ctx context.Context) (*GameState, error) {
	selected, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	state := &GameState{
		Profiles:      make([]ProfileView, 0, len(roster)),
		SelectedIndex: 0,
	}
	for _, name := range roster {
		p, ok, err := s.profiles.Read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read profile %q: %w", name, err)
		}
		if !ok {
			continue
		}
		if name == selected {
			state.SelectedIndex = len(state.Profiles)
		}
		state.Profiles = append(state.Profiles, buildView(s.tmpl, p))
	}
	return state, nil
}

// GetState assembles the full externally visible state.
func (s *Service) GetState(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembleLocked(ctx)
}

// ObserveState hands the current state to fn while holding the service lock,
// so fn is ordered with respect to every publish.
func (s *Service) ObserveState(ctx context.Context, fn func(*GameState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.assembleLocked(ctx)
	if err != nil {
		return err
	}
	fn(state)
	return nil
}
