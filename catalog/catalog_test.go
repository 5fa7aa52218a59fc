package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeContent(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MissingDirectoryIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Items)+len(c.Recipes)+len(c.Mobs) != 0 || c.Skipped != 0 {
		t.Fatalf("expected empty catalog, got %+v", c)
	}
}

func TestLoad_ItemUnion(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "items/tools.json", `[
		{"id":"axe","name":"Axe","type":"tool","durability":50,"damage":99},
		{"id":"pick","name":"Pick","type":"tool"},
		{"id":"sword","name":"Sword","type":"weapon","damage":7,"range":1},
		{"id":"helm","name":"Helm","type":"armor","defense":3,"slot":"head"},
		{"id":"wood","name":"Wood","type":"material","value":2},
		{"id":"orb","name":"Orb","type":"magic"},
		{"id":"","name":"Nameless","type":"material"},
		"not an object"
	]`)
	writeContent(t, root, "items/nested/gem.json", `{"id":"gem","name":"Gem","type":"material"}`)
	writeContent(t, root, "items/broken.json", `{"id":`)
	writeContent(t, root, "items/readme.txt", `ignored`)

	c, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"axe", "gem", "helm", "sword", "wood"}
	got := c.ItemList()
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %+v", len(want), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("item %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if c.Skipped != 5 {
		t.Fatalf("expected 5 skipped records, got %d", c.Skipped)
	}
	axe := c.Items["axe"]
	if axe.Durability == nil || *axe.Durability != 50 || axe.Damage != nil {
		t.Fatalf("expected tool fields only, got %+v", axe)
	}
	if c.Items["helm"].Slot != "head" {
		t.Fatalf("expected armor slot kept")
	}
}

func TestLoad_RecipesAndMobs(t *testing.T) {
	root := t.TempDir()
	writeContent(t, root, "recipes/basic.json", `[
		{"id":"plank","name":"Plank","ingredients":["wood"],"result":"plank","steps":["saw"]},
		{"id":"nothing","name":"Nothing","result":"x"},
		{"id":"loose","name":"Loose","ingredients":[]}
	]`)
	writeContent(t, root, "mobs/wolf.json", `{"id":"wolf","name":"Wolf","level":3,"drops":["pelt"]}`)
	writeContent(t, root, "mobs/bad.json", `{"id":"bat","name":"Bat","level":"high"}`)

	c, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Recipes) != 1 || c.Recipes["plank"].Result != "plank" {
		t.Fatalf("unexpected recipes: %+v", c.Recipes)
	}
	if len(c.Mobs) != 1 || c.Mobs["wolf"].Level == nil || *c.Mobs["wolf"].Level != 3 {
		t.Fatalf("unexpected mobs: %+v", c.Mobs)
	}
	if c.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", c.Skipped)
	}
}
