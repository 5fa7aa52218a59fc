package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"idle-lite/profile"
)

// legacyDatabase is the single-file layout older installs kept every
// profile in: display-cased keys and {"totalXP": n} skill records.
type legacyDatabase struct {
	Profiles             []legacyProfile `json:"profiles"`
	SelectedProfileIndex *int            `json:"selectedProfileIndex"`
}

type legacyProfile struct {
	Name string `json:"name"`
	Data struct {
		Skills    map[string]legacySkill `json:"skills"`
		Inventory map[string]float64     `json:"inventory"`
	} `json:"data"`
}

type legacySkill struct {
	TotalXP float64 `json:"totalXP"`
}

type MigrationReport struct {
	Imported []string        `json:"imported"`
	Skipped  []MigrationSkip `json:"skipped,omitempty"`
}

type MigrationSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// convertLegacy maps a legacy record onto the template. Keys match
// case-insensitively; template keys the record lacks start at zero and
// keys the template does not know are dropped.
func convertLegacy(tmpl profile.Template, lp legacyProfile) profile.Data {
	data := tmpl.Zero()
	for key, skill := range lp.Data.Skills {
		if target, ok := foldKey(tmpl.Skills, key); ok {
			data.Skills[target] = skill.TotalXP
		}
	}
	for key, qty := range lp.Data.Inventory {
		if target, ok := foldKey(tmpl.Items, key); ok {
			data.Inventory[target] = qty
		}
	}
	return data
}

func foldKey(keys []string, key string) (string, bool) {
	for _, k := range keys {
		if profile.SameName(k, key) {
			return k, true
		}
	}
	return "", false
}

// MigrateLegacy imports every profile of a legacy database that does not
// collide with an existing name. The legacy selection is kept when its
// profile was imported.
func (s *Service) MigrateLegacy(ctx context.Context, raw []byte) (*GameState, MigrationReport, error) {
	var db legacyDatabase
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, MigrationReport{}, profile.ErrValidation("legacy database is unreadable: %v", err)
	}
	if len(db.Profiles) == 0 {
		return nil, MigrationReport{}, profile.ValidationError("legacy database has no profiles")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.resolveLocked(ctx); err != nil {
		return nil, MigrationReport{}, err
	}
	roster, err := s.profiles.ListNames(ctx)
	if err != nil {
		return nil, MigrationReport{}, fmt.Errorf("list profiles: %w", err)
	}

	report := MigrationReport{Imported: []string{}}
	selected := ""
	for i, lp := range db.Profiles {
		if profile.ValidateName(lp.Name) != nil {
			report.Skipped = append(report.Skipped, MigrationSkip{Name: lp.Name, Reason: "empty name"})
			continue
		}
		if profile.FindName(roster, lp.Name, -1) >= 0 {
			report.Skipped = append(report.Skipped, MigrationSkip{Name: lp.Name, Reason: "name already exists"})
			continue
		}
		if err := s.profiles.Write(ctx, lp.Name, convertLegacy(s.tmpl, lp)); err != nil {
			return nil, report, fmt.Errorf("write profile %q: %w", lp.Name, err)
		}
		roster = append(roster, lp.Name)
		report.Imported = append(report.Imported, lp.Name)
		if db.SelectedProfileIndex != nil && *db.SelectedProfileIndex == i {
			selected = lp.Name
		}
	}
	if selected != "" {
		if err := s.settings.SetSelectedName(ctx, selected); err != nil {
			return nil, report, fmt.Errorf("select profile: %w", err)
		}
	}
	log.Printf("[Profiles] Legacy migration: %d imported, %d skipped", len(report.Imported), len(report.Skipped))

	state, err := s.stateLocked(ctx, nil)
	if err != nil {
		return nil, report, err
	}
	return state, report, nil
}
