package leveling

import "math"

const (
	BaseXP = 100

	// GrowthRate is applied as growthNum/growthDen so every tier is an exact
	// integer: 100, 115, 132, 151, ...
	GrowthRate = 1.15

	growthNum = 115
	growthDen = 100

	// exactTierLimit keeps tier*growthNum inside int64.
	exactTierLimit = 1 << 50
)

// Progress is the derived leveling view of a skill's total experience.
type Progress struct {
	Level         int     `json:"level"`
	CurrentXP     float64 `json:"current_xp"`
	XPToNextLevel float64 `json:"xp_to_next_level"`
}

// LevelFromXP walks the tier table until totalXP no longer covers the next tier.
// Each tier is the previous one times GrowthRate, floored.
func LevelFromXP(totalXP float64) Progress {
	if math.IsNaN(totalXP) || totalXP < 0 {
		totalXP = 0
	}
	if math.IsInf(totalXP, 1) {
		totalXP = math.MaxFloat64
	}

	level := 0
	xpForNext := float64(BaseXP)
	cumulative := 0.0
	for totalXP >= cumulative+xpForNext {
		cumulative += xpForNext
		level++
		xpForNext = nextTier(xpForNext)
	}

	return Progress{
		Level:         level,
		CurrentXP:     totalXP - cumulative,
		XPToNextLevel: xpForNext,
	}
}

// XPForLevel returns the cumulative experience at which level begins.
func XPForLevel(level int) float64 {
	cumulative := 0.0
	xpForNext := float64(BaseXP)
	for i := 0; i < level; i++ {
		cumulative += xpForNext
		xpForNext = nextTier(xpForNext)
	}
	return cumulative
}

// nextTier floors tier*GrowthRate. Tiers past exactTierLimit only occur for
// absurd experience totals and fall back to float arithmetic.
func nextTier(tier float64) float64 {
	if tier < exactTierLimit {
		return float64(int64(tier) * growthNum / growthDen)
	}
	return math.Floor(tier * GrowthRate)
}
