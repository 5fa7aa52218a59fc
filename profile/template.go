package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"idle-lite/leveling"
)

// Template is the fixed skill/item schema every profile must match.
// It is loaded once at startup and treated as read-only afterwards.
type Template struct {
	Skills []string           `json:"skills"`
	Items  []string           `json:"items"`
	Stats  leveling.StatRules `json:"stats,omitempty"`
}

func DefaultTemplate() Template {
	return Template{
		Skills: []string{"woodcutting", "mining", "foraging"},
		Items:  []string{"wood", "stone", "herbs"},
		Stats:  leveling.DefaultStatRules(),
	}
}

// LoadTemplate reads a template record from path.
func LoadTemplate(path string) (Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	var tmpl Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return Template{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	if tmpl.Stats == nil {
		tmpl.Stats = leveling.DefaultStatRules()
	}
	if err := tmpl.validate(); err != nil {
		return Template{}, fmt.Errorf("template %s: %w", path, err)
	}
	return tmpl, nil
}

// LoadTemplateOrDefault falls back to DefaultTemplate when the record is
// missing or unusable.
func LoadTemplateOrDefault(path string) Template {
	if strings.TrimSpace(path) == "" {
		return DefaultTemplate()
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[Profiles] Template unusable, using built-in default: %v", err)
		}
		return DefaultTemplate()
	}
	return tmpl
}

func (t Template) validate() error {
	if len(t.Skills) == 0 {
		return fmt.Errorf("no skills defined")
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("no items defined")
	}
	if err := uniqueKeys("skill", t.Skills); err != nil {
		return err
	}
	if err := uniqueKeys("item", t.Items); err != nil {
		return err
	}
	for skill, rule := range t.Stats {
		if rule.Divisor <= 0 {
			return fmt.Errorf("stat rule for %q needs a positive divisor", skill)
		}
		if strings.TrimSpace(rule.Stat) == "" {
			return fmt.Errorf("stat rule for %q has no stat", skill)
		}
	}
	return nil
}

func uniqueKeys(kind string, keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("empty %s name", kind)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate %s %q", kind, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Zero returns a fresh Data with every template key at zero.
func (t Template) Zero() Data {
	d := Data{
		Skills:    make(map[string]float64, len(t.Skills)),
		Inventory: make(map[string]float64, len(t.Items)),
	}
	for _, s := range t.Skills {
		d.Skills[s] = 0
	}
	for _, it := range t.Items {
		d.Inventory[it] = 0
	}
	return d
}

func (t Template) HasSkill(name string) bool {
	for _, s := range t.Skills {
		if s == name {
			return true
		}
	}
	return false
}
