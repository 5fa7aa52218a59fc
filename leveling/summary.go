package leveling

// SkillProgress is one skill's raw experience with its derived progress.
type SkillProgress struct {
	TotalXP float64 `json:"total_xp"`
	Progress
}

// Summary is everything derived from a profile's skill experience.
type Summary struct {
	Skills     map[string]SkillProgress `json:"skills"`
	TotalLevel int                      `json:"total_level"`
	Stats      map[string]int           `json:"stats"`
}

func Summarize(rules StatRules, skillXP map[string]float64) Summary {
	sum := Summary{Skills: make(map[string]SkillProgress, len(skillXP))}
	for skill, xp := range skillXP {
		p := LevelFromXP(xp)
		sum.Skills[skill] = SkillProgress{TotalXP: xp, Progress: p}
		sum.TotalLevel += p.Level
	}
	sum.Stats = CalculateStats(rules, skillXP)
	return sum
}
