package enums

import "strings"

// Badge ids awarded by the gamification ledger. Historic client data mixes
// casing, so all comparisons must go through EqualBadge.
const (
	BadgeEcoWarrior   = "eco_warrior"
	BadgeGenerousSoul = "generous_soul"
	BadgeSierraMadre  = "sierra_madre"
)

// EqualBadge compares badge ids case-insensitively.
func EqualBadge(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ContainsBadge reports whether the set already holds the badge id.
func ContainsBadge(set []string, id string) bool {
	for _, held := range set {
		if EqualBadge(held, id) {
			return true
		}
	}
	return false
}
