package profile

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultName is used whenever the roster has to be seeded from nothing.
const DefaultName = "Adventurer"

// NameKey folds a profile name for case-insensitive uniqueness checks.
func NameKey(name string) string {
	return cases.Fold().String(name)
}

func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError("profile name cannot be empty")
	}
	return nil
}

// FindName returns the index of the roster entry matching name case-insensitively,
// skipping the entry at except (pass -1 to check all).
func FindName(roster []string, name string, except int) int {
	key := NameKey(name)
	for i, existing := range roster {
		if i == except {
			continue
		}
		if NameKey(existing) == key {
			return i
		}
	}
	return -1
}
