package game

import (
	"context"
	"reflect"
	"testing"

	"idle-lite/profile"
)

const legacyDB = `{
  "profiles": [
    {"name": "Adventurer", "data": {"skills": {"Woodcutting": {"totalXP": 40}}, "inventory": {"Wood": 4}}},
    {"name": "Miner", "data": {"skills": {"Mining": {"totalXP": 230}, "Fishing": {"totalXP": 9}}, "inventory": {"Stone": 12, "Fish": 1}}},
    {"name": "  ", "data": {"skills": {}, "inventory": {}}},
    {"name": "Herbalist", "data": {"skills": {"Foraging": {"totalXP": 5.5}}, "inventory": {}}}
  ],
  "selectedProfileIndex": 1
}`

func TestMigrateLegacy(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	state, report, err := svc.MigrateLegacy(ctx, []byte(legacyDB))
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !reflect.DeepEqual(report.Imported, []string{"Miner", "Herbalist"}) {
		t.Fatalf("unexpected imports: %+v", report)
	}
	if len(report.Skipped) != 2 || report.Skipped[0].Reason != "name already exists" {
		t.Fatalf("unexpected skips: %+v", report.Skipped)
	}
	if !reflect.DeepEqual(names(state), []string{profile.DefaultName, "Miner", "Herbalist"}) {
		t.Fatalf("unexpected roster: %v", names(state))
	}
	if state.SelectedIndex != 1 {
		t.Fatalf("expected legacy selection kept, got %d", state.SelectedIndex)
	}

	miner, _, _ := st.Read(ctx, "Miner")
	if miner.Status != profile.StatusOK {
		t.Fatalf("expected valid migrated record")
	}
	want := profile.DefaultTemplate().Zero()
	want.Skills["mining"] = 230
	want.Inventory["stone"] = 12
	if !reflect.DeepEqual(miner.Data, want) {
		t.Fatalf("expected %+v, got %+v", want, miner.Data)
	}

	// Existing profiles are never overwritten.
	adv, _, _ := st.Read(ctx, profile.DefaultName)
	if adv.Data.Skills["woodcutting"] != 0 {
		t.Fatalf("existing profile was modified")
	}
}

func TestMigrateLegacy_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	for _, raw := range []string{"", "{", `{"profiles": []}`, `{"profiles": "x"}`} {
		if _, _, err := svc.MigrateLegacy(context.Background(), []byte(raw)); !profile.IsClientError(err) {
			t.Fatalf("expected client error for %q, got %v", raw, err)
		}
	}
}
