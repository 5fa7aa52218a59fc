package leveling

import (
	"math"
	"testing"
)

func TestLevelFromXP_KnownPoints(t *testing.T) {
	cases := []struct {
		xp   float64
		want Progress
	}{
		{0, Progress{Level: 0, CurrentXP: 0, XPToNextLevel: 100}},
		{99, Progress{Level: 0, CurrentXP: 99, XPToNextLevel: 100}},
		{100, Progress{Level: 1, CurrentXP: 0, XPToNextLevel: 115}},
		{214.5, Progress{Level: 1, CurrentXP: 114.5, XPToNextLevel: 115}},
		{215, Progress{Level: 2, CurrentXP: 0, XPToNextLevel: 132}},
		{347, Progress{Level: 3, CurrentXP: 0, XPToNextLevel: 151}},
		{498, Progress{Level: 4, CurrentXP: 0, XPToNextLevel: 173}},
	}
	for _, tc := range cases {
		got := LevelFromXP(tc.xp)
		if got != tc.want {
			t.Fatalf("LevelFromXP(%v): expected %+v, got %+v", tc.xp, tc.want, got)
		}
	}
}

func TestLevelFromXP_InvalidInputTreatedAsZero(t *testing.T) {
	for _, xp := range []float64{-1, -500, math.NaN()} {
		got := LevelFromXP(xp)
		if got.Level != 0 || got.CurrentXP != 0 || got.XPToNextLevel != BaseXP {
			t.Fatalf("LevelFromXP(%v): expected zero progress, got %+v", xp, got)
		}
	}
}

func TestLevelFromXP_Monotonic(t *testing.T) {
	prev := LevelFromXP(0).Level
	for xp := 0.0; xp <= 50000; xp += 7.5 {
		level := LevelFromXP(xp).Level
		if level < prev {
			t.Fatalf("level decreased at xp=%v: %d < %d", xp, level, prev)
		}
		prev = level
	}
}

func TestLevelFromXP_ConservesExperience(t *testing.T) {
	for xp := 0.0; xp <= 20000; xp += 13 {
		p := LevelFromXP(xp)
		if p.CurrentXP < 0 {
			t.Fatalf("negative current xp at %v: %+v", xp, p)
		}
		if p.CurrentXP >= p.XPToNextLevel {
			t.Fatalf("current xp not below next tier at %v: %+v", xp, p)
		}
		if consumed := XPForLevel(p.Level); consumed+p.CurrentXP != xp {
			t.Fatalf("consumed tiers + current xp != total at %v: %v + %v", xp, consumed, p.CurrentXP)
		}
	}
}

func TestXPForLevel_InverseOfLevelFromXP(t *testing.T) {
	for level := 0; level <= 40; level++ {
		start := XPForLevel(level)
		p := LevelFromXP(start)
		if p.Level != level || p.CurrentXP != 0 {
			t.Fatalf("XPForLevel(%d)=%v maps back to %+v", level, start, p)
		}
		if level > 0 {
			if below := LevelFromXP(start - 0.5); below.Level != level-1 {
				t.Fatalf("expected level %d just below %v, got %d", level-1, start, below.Level)
			}
		}
	}
}

func TestNextTier_ExactIntegers(t *testing.T) {
	want := []float64{100, 115, 132, 151, 173, 198, 227, 261}
	tier := float64(BaseXP)
	for i, w := range want {
		if tier != w {
			t.Fatalf("tier %d: expected %v, got %v", i, w, tier)
		}
		tier = nextTier(tier)
	}
	if got := XPForLevel(3); got != 347 {
		t.Fatalf("expected level 3 to start at 347, got %v", got)
	}
}

func TestLevelFromXP_HugeTotalsTerminate(t *testing.T) {
	for _, xp := range []float64{1e18, math.MaxFloat64, math.Inf(1)} {
		p := LevelFromXP(xp)
		if p.Level <= 0 || p.CurrentXP < 0 {
			t.Fatalf("LevelFromXP(%v): unexpected %+v", xp, p)
		}
	}
}
