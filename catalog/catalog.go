// Package catalog loads the read-only game content (items, recipes, mobs)
// from a directory tree of JSON files.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type ItemKind string

const (
	KindTool     ItemKind = "tool"
	KindWeapon   ItemKind = "weapon"
	KindArmor    ItemKind = "armor"
	KindMaterial ItemKind = "material"
)

// Item is one entry of the closed item union. Kind-specific fields are nil
// unless the kind defines them.
type Item struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        ItemKind       `json:"type"`
	Description string         `json:"description,omitempty"`
	Value       *int           `json:"value,omitempty"`
	Attributes  map[string]int `json:"attributes,omitempty"`

	Durability *int   `json:"durability,omitempty"`
	Efficiency *int   `json:"efficiency,omitempty"`
	Damage     *int   `json:"damage,omitempty"`
	Range      *int   `json:"range,omitempty"`
	Defense    *int   `json:"defense,omitempty"`
	Slot       string `json:"slot,omitempty"`
}

type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Result      string   `json:"result"`
	Steps       []string `json:"steps,omitempty"`
}

type Mob struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Stats       map[string]int `json:"stats,omitempty"`
	Drops       []string       `json:"drops,omitempty"`
	Level       *int           `json:"level,omitempty"`
}

// Catalog is keyed by record id. A later file wins on duplicate ids.
type Catalog struct {
	Items   map[string]Item
	Recipes map[string]Recipe
	Mobs    map[string]Mob
	// Skipped counts records that failed to parse or validate.
	Skipped int
}

func Empty() *Catalog {
	return &Catalog{
		Items:   map[string]Item{},
		Recipes: map[string]Recipe{},
		Mobs:    map[string]Mob{},
	}
}

// Load reads dir/items, dir/recipes and dir/mobs. Missing directories are
// treated as empty; malformed records are skipped and counted.
func Load(dir string) (*Catalog, error) {
	c := Empty()
	if strings.TrimSpace(dir) == "" {
		return c, nil
	}
	sections := []struct {
		name string
		add  func(json.RawMessage) error
	}{
		{"items", c.addItem},
		{"recipes", c.addRecipe},
		{"mobs", c.addMob},
	}
	for _, sec := range sections {
		if err := c.walk(filepath.Join(dir, sec.name), sec.add); err != nil {
			return nil, err
		}
	}
	log.Printf("[Catalog] Loaded %d items, %d recipes, %d mobs (%d skipped) from %s",
		len(c.Items), len(c.Recipes), len(c.Mobs), c.Skipped, dir)
	return c, nil
}

func (c *Catalog) walk(root string, add func(json.RawMessage) error) error {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		records, err := splitRecords(raw)
		if err != nil {
			log.Printf("[Catalog] Skipping %s: %v", path, err)
			c.Skipped++
			return nil
		}
		for i, rec := range records {
			if err := add(rec); err != nil {
				log.Printf("[Catalog] Skipping record %d of %s: %v", i, path, err)
				c.Skipped++
			}
		}
		return nil
	})
}

// splitRecords accepts a single object or a list of objects.
func splitRecords(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid json")
	}
	return []json.RawMessage{trimmed}, nil
}

func (c *Catalog) addItem(raw json.RawMessage) error {
	var it Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return err
	}
	if err := requireIdentity(it.ID, it.Name); err != nil {
		return err
	}
	switch it.Type {
	case KindTool:
		if it.Durability == nil {
			return fmt.Errorf("tool %q: missing durability", it.ID)
		}
		it.Damage, it.Range, it.Defense, it.Slot = nil, nil, nil, ""
	case KindWeapon:
		if it.Damage == nil {
			return fmt.Errorf("weapon %q: missing damage", it.ID)
		}
		it.Durability, it.Efficiency, it.Defense, it.Slot = nil, nil, nil, ""
	case KindArmor:
		if it.Defense == nil {
			return fmt.Errorf("armor %q: missing defense", it.ID)
		}
		it.Durability, it.Efficiency, it.Damage, it.Range = nil, nil, nil, nil
	case KindMaterial:
		it.Durability, it.Efficiency, it.Damage, it.Range, it.Defense, it.Slot = nil, nil, nil, nil, nil, ""
	default:
		return fmt.Errorf("item %q: unknown type %q", it.ID, it.Type)
	}
	c.Items[it.ID] = it
	return nil
}

func (c *Catalog) addRecipe(raw json.RawMessage) error {
	var r Recipe
	if err := json.Unmarshal(raw, &r); err != nil {
		return err
	}
	if err := requireIdentity(r.ID, r.Name); err != nil {
		return err
	}
	if r.Ingredients == nil {
		return fmt.Errorf("recipe %q: missing ingredients", r.ID)
	}
	if r.Result == "" {
		return fmt.Errorf("recipe %q: missing result", r.ID)
	}
	c.Recipes[r.ID] = r
	return nil
}

func (c *Catalog) addMob(raw json.RawMessage) error {
	var m Mob
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if err := requireIdentity(m.ID, m.Name); err != nil {
		return err
	}
	c.Mobs[m.ID] = m
	return nil
}

func requireIdentity(id, name string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("record %q: missing name", id)
	}
	return nil
}

// ItemList returns the items sorted by id.
func (c *Catalog) ItemList() []Item {
	return sortedValues(c.Items)
}

func (c *Catalog) RecipeList() []Recipe {
	return sortedValues(c.Recipes)
}

func (c *Catalog) MobList() []Mob {
	return sortedValues(c.Mobs)
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
