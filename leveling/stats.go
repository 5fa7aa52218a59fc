package leveling

import "sort"

const BaseStat = 1

// StatRule feeds one skill's level into one stat.
type StatRule struct {
	Stat    string `json:"stat"`
	Divisor int    `json:"divisor"`
}

// StatRules maps skill name -> the stat it feeds.
type StatRules map[string]StatRule

func DefaultStatRules() StatRules {
	return StatRules{
		"woodcutting": {Stat: "strength", Divisor: 5},
		"mining":      {Stat: "dexterity", Divisor: 5},
		"foraging":    {Stat: "intelligence", Divisor: 3},
	}
}

// StatNames lists every stat the rules produce, sorted.
func (r StatRules) StatNames() []string {
	seen := make(map[string]struct{}, len(r))
	names := make([]string, 0, len(r))
	for _, rule := range r {
		if _, ok := seen[rule.Stat]; ok {
			continue
		}
		seen[rule.Stat] = struct{}{}
		names = append(names, rule.Stat)
	}
	sort.Strings(names)
	return names
}

// CalculateStats derives attribute values from raw skill experience.
// Every stat starts at BaseStat; each skill with a rule adds level/divisor.
func CalculateStats(rules StatRules, skillXP map[string]float64) map[string]int {
	stats := make(map[string]int, len(rules))
	for _, name := range rules.StatNames() {
		stats[name] = BaseStat
	}
	for skill, xp := range skillXP {
		rule, ok := rules[skill]
		if !ok || rule.Divisor <= 0 {
			continue
		}
		stats[rule.Stat] += LevelFromXP(xp).Level / rule.Divisor
	}
	return stats
}
