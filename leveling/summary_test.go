package leveling

import "testing"

func TestSummarize(t *testing.T) {
	sum := Summarize(DefaultStatRules(), map[string]float64{
		"woodcutting": 347,
		"mining":      100,
		"foraging":    0,
	})
	if sum.TotalLevel != 4 {
		t.Fatalf("expected total level 4, got %d", sum.TotalLevel)
	}
	wood := sum.Skills["woodcutting"]
	if wood.TotalXP != 347 || wood.Level != 3 || wood.CurrentXP != 0 || wood.XPToNextLevel != 151 {
		t.Fatalf("unexpected woodcutting progress %+v", wood)
	}
	if sum.Stats["strength"] != 1 || sum.Stats["dexterity"] != 1 || sum.Stats["intelligence"] != 1 {
		t.Fatalf("unexpected stats %+v", sum.Stats)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil, nil)
	if sum.TotalLevel != 0 || len(sum.Skills) != 0 || len(sum.Stats) != 0 {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
}
