package game

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"idle-lite/apps/server/internal/ledger"
	"idle-lite/leveling"
	"idle-lite/profile"
)

// Action is one entry of the fixed gathering table.
type Action struct {
	Skill    string  `json:"skill"`
	XP       float64 `json:"xp"`
	Item     string  `json:"item,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
}

// Gain describes exactly what an applied action changed.
type Gain struct {
	ActionID string `json:"action_id"`
	Action
}

func DefaultActions() map[string]Action {
	return map[string]Action{
		"gather-wood-button":  {Skill: "woodcutting", XP: 10, Item: "wood", Quantity: 1},
		"mine-stone-button":   {Skill: "mining", XP: 15, Item: "stone", Quantity: 1},
		"forage-herbs-button": {Skill: "foraging", XP: 5, Item: "herbs", Quantity: 1},
	}
}

// supportedActions keeps only actions whose skill and item belong to the
// template, so applying one can never push a record out of shape.
func supportedActions(tmpl profile.Template, actions map[string]Action) map[string]Action {
	out := make(map[string]Action, len(actions))
	for id, a := range actions {
		if !tmpl.HasSkill(a.Skill) {
			log.Printf("[Profiles] Dropping action %q: unknown skill %q", id, a.Skill)
			continue
		}
		if a.Item != "" && !hasItem(tmpl, a.Item) {
			log.Printf("[Profiles] Dropping action %q: unknown item %q", id, a.Item)
			continue
		}
		out[id] = a
	}
	return out
}

func hasItem(tmpl profile.Template, item string) bool {
	for _, it := range tmpl.Items {
		if it == item {
			return true
		}
	}
	return false
}

// ActionIDs lists the known action identifiers, sorted.
func (s *Service) ActionIDs() []string {
	ids := make([]string, 0, len(s.actions))
	for id := range s.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyAction adds the action's experience and items to the selected profile.
// Corrupt profiles are never touched.
func (s *Service) ApplyAction(ctx context.Context, actionID string) (*GameState, error) {
	if actionID == "" {
		return nil, profile.ValidationError("no action id provided")
	}
	action, ok := s.actions[actionID]
	if !ok {
		return nil, &profile.UnknownActionError{ID: actionID, Suggestion: s.suggestAction(actionID)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	p, found, err := s.profiles.Read(ctx, selected)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("selected profile %q vanished", selected)
	}
	if p.Status != profile.StatusOK {
		return nil, profile.ErrCorruptProfile
	}

	data := p.Data.Clone()
	data.Skills[action.Skill] += action.XP
	if action.Item != "" {
		if _, ok := data.Inventory[action.Item]; !ok {
			data.Inventory[action.Item] = 0
		}
		data.Inventory[action.Item] += action.Quantity
	}
	if err := s.profiles.Write(ctx, selected, data); err != nil {
		return nil, fmt.Errorf("write profile: %w", err)
	}

	entry := ledger.Entry{
		Profile:  selected,
		ActionID: actionID,
		Skill:    action.Skill,
		XP:       action.XP,
		Item:     action.Item,
		Quantity: action.Quantity,
		Level:    leveling.LevelFromXP(data.Skills[action.Skill]).Level,
		At:       time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		log.Printf("[Ledger] append failed: profile=%q action=%s err=%v", selected, actionID, err)
	}

	return s.stateLocked(ctx, &Gain{ActionID: actionID, Action: action})
}

// suggestAction returns the closest known action id within an edit distance
// that scales with its length, or "" when nothing is close.
func (s *Service) suggestAction(actionID string) string {
	input := strings.ToLower(actionID)
	best := ""
	bestDist := -1
	for _, id := range s.ActionIDs() {
		dist := levenshtein.ComputeDistance(input, id)
		if dist > suggestionLimit(len(id)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = id, dist
		}
	}
	return best
}

func suggestionLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	case length <= 16:
		return 3
	default:
		return 4
	}
}
