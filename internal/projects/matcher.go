package projects

import (
	"sort"
	"strings"

	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// MatchMaterial resolves a free-text request title to a material id by
// case-insensitive containment in either direction. Titles are truncated
// donation descriptions, so exact matching is infeasible; the first match in
// key order wins and a miss is a valid outcome callers must tolerate.
func MatchMaterial(title string, materials map[string]models.Material) string {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" || len(materials) == 0 {
		return ""
	}

	// Key order keeps the result stable across runs.
	ids := make([]string, 0, len(materials))
	for id := range materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		name := strings.ToLower(strings.TrimSpace(materials[id].Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return id
		}
	}
	return ""
}
