package marketplace

import (
	"sort"
	"strings"

	"github.com/Elhashino/amazon-deals/internal/category"
)

// curatedRootTargets maps curated keys to the normalized keywords a root
// category's name must all contain. The curated subset keeps a run's
// listing scope (and provider token spend) bounded.
var curatedRootTargets = map[string][]string{
	"home_kitchen": {"home", "kitchen"},
	"diy_tools":    {"diy", "tools"},
	"toys_games":   {"toys"},
	"electronics":  {"electronics"},
	"beauty":       {"beauty"},
	"health":       {"health"},
	"grocery":      {"grocery"},
	"pet":          {"pet"},
	"sports":       {"sports"},
	"baby":         {"baby"},
	"automotive":   {"automotive"},
	"garden":       {"garden", "outdoor"},
}

// ResolveCuratedRootIDs locates the curated root-category ids by fuzzy
// name match. Roots whose keywords find no match are simply absent from
// the result; an empty result signals the caller to fall back to the full
// raw category set.
func ResolveCuratedRootIDs(roots map[string]RootCategory) map[string]int64 {
	out := make(map[string]int64)
	for key, keywords := range curatedRootTargets {
		if id, ok := findRootByKeywords(roots, keywords); ok {
			out[key] = id
		}
	}
	return out
}

func findRootByKeywords(roots map[string]RootCategory, keywords []string) (int64, bool) {
	// Iterate in a stable order so ambiguous keyword sets resolve
	// deterministically across runs.
	ids := make([]string, 0, len(roots))
	for id := range roots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		name := category.Normalize(roots[id].Name)
		matched := true
		for _, kw := range keywords {
			if !strings.Contains(name, kw) {
				matched = false
				break
			}
		}
		if matched && roots[id].ID != 0 {
			return roots[id].ID, true
		}
	}
	return 0, false
}

// UniqueSortedIDs flattens a curated resolution to the de-duplicated,
// sorted id list the coordinator iterates.
func UniqueSortedIDs(curated map[string]int64) []int64 {
	seen := make(map[int64]struct{}, len(curated))
	var ids []int64
	for _, id := range curated {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
