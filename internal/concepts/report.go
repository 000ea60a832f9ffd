package concepts

import "sort"

// BuildResult assembles a ScanResult. Occurrences are stable-sorted by
// (line, column). ByCategory holds every category in categories and ByTier
// every tier selected by tiers, both zero-filled before counting.
func BuildResult(path string, occurrences []Occurrence, malformed []MalformedConstruct, categories []Category, tiers TierSet) *ScanResult {
	sorted := make([]Occurrence, len(occurrences))
	copy(sorted, occurrences)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Column < sorted[j].Column
	})

	summary := Summary{
		ByCategory: make(map[Category]int, len(categories)),
		ByTier:     make(map[Tier]int, 2),
	}
	for _, c := range categories {
		summary.ByCategory[c] = 0
	}
	for _, t := range tiers.Tiers() {
		summary.ByTier[t] = 0
	}
	for _, o := range sorted {
		summary.ByCategory[o.Category]++
		summary.ByTier[o.Tier]++
	}

	return &ScanResult{
		Path:        path,
		Occurrences: sorted,
		Summary:     summary,
		Malformed:   malformed,
	}
}
