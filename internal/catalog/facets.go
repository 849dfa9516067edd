package catalog

import (
	"sort"

	"tripplanner/internal/models"
)

// Facets lists the values offered by the category and country selectors.
type Facets struct {
	Categories []string `json:"categories"`
	Countries  []string `json:"countries"`
}

func BuildFacets(trips []models.Trip) Facets {
	categories := make(map[string]struct{})
	countries := make(map[string]struct{})
	for _, t := range trips {
		categories[t.CategoryOrDefault()] = struct{}{}
		if c := t.Country(); c != "" {
			countries[c] = struct{}{}
		}
	}
	return Facets{
		Categories: sortedKeys(categories),
		Countries:  sortedKeys(countries),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
