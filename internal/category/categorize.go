// Package category maps marketplace taxonomy onto the closed set of
// curated listing categories and owns the per-category admission
// thresholds.
package category

import (
	"strings"
	"unicode"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// kitchenTreeKeywords disambiguate the legacy Home & Kitchen root: a
// product whose category tree mentions any of these lands in "kitchen",
// otherwise "home".
var kitchenTreeKeywords = []string{
	"kitchen", "dining", "cookware", "bakeware", "utensils", "appliances",
}

// Categorize resolves one category slug from the product's root-category
// display name and its category-tree tokens.
//
// The checks form a fixed precedence table, first match wins: the specific
// verticals are tested before the legacy home/kitchen split, garden
// excludes sports-flavoured "outdoor" roots, and anything unmatched
// defaults to home. Checks are sequential and exclusive, so ties cannot
// occur.
func Categorize(treeTokens []string, rootName string) domain.CategorySlug {
	root := Normalize(rootName)

	switch {
	case strings.Contains(root, "beauty"):
		return domain.CategoryBeauty
	case strings.Contains(root, "health"):
		return domain.CategoryHealth
	case strings.Contains(root, "grocery"), strings.Contains(root, "food"):
		return domain.CategoryGrocery
	case strings.Contains(root, "pet"):
		return domain.CategoryPet
	case strings.Contains(root, "garden"),
		strings.Contains(root, "lawn"),
		strings.Contains(root, "outdoor") && !strings.Contains(root, "sports"):
		return domain.CategoryGarden
	case strings.Contains(root, "sports"), strings.Contains(root, "outdoors"):
		return domain.CategorySports
	case strings.Contains(root, "baby"):
		return domain.CategoryBaby
	case strings.Contains(root, "automotive"):
		return domain.CategoryAutomotive
	}

	if strings.Contains(root, "home") && strings.Contains(root, "kitchen") {
		joined := make([]string, 0, len(treeTokens))
		for _, tok := range treeTokens {
			joined = append(joined, Normalize(tok))
		}
		names := strings.Join(joined, " ")
		for _, kw := range kitchenTreeKeywords {
			if strings.Contains(names, kw) {
				return domain.CategoryKitchen
			}
		}
		return domain.CategoryHome
	}

	switch {
	case strings.Contains(root, "diy"), strings.Contains(root, "tools"):
		return domain.CategoryDIY
	case strings.Contains(root, "toys"), strings.Contains(root, "games"):
		return domain.CategoryToys
	case strings.Contains(root, "electronics"):
		return domain.CategoryElectrical
	}

	return domain.CategoryHome
}

// Normalize lowercases and strips everything but letters, digits and
// spaces, then trims. All category-name matching runs on this form.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Thresholds holds the per-slug minimum discount fractions a deal must
// clear to be admitted.
type Thresholds struct {
	Home       float64
	Kitchen    float64
	DIY        float64
	Electrical float64
	Toys       float64
	Grocery    float64
	Health     float64
	Beauty     float64
	Pet        float64
	Sports     float64
	Baby       float64
	Automotive float64
}

// DefaultMinDiscount applies when no per-category override is configured.
const DefaultMinDiscount = 0.25

// DefaultThresholds returns a Thresholds with every slug at the default.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Home:       DefaultMinDiscount,
		Kitchen:    DefaultMinDiscount,
		DIY:        DefaultMinDiscount,
		Electrical: DefaultMinDiscount,
		Toys:       DefaultMinDiscount,
		Grocery:    DefaultMinDiscount,
		Health:     DefaultMinDiscount,
		Beauty:     DefaultMinDiscount,
		Pet:        DefaultMinDiscount,
		Sports:     DefaultMinDiscount,
		Baby:       DefaultMinDiscount,
		Automotive: DefaultMinDiscount,
	}
}

// MinDiscount returns the minimum discount for a slug. Garden deliberately
// shares home's threshold, and any unrecognized slug falls back to home.
func (t Thresholds) MinDiscount(slug domain.CategorySlug) float64 {
	switch slug {
	case domain.CategoryHome:
		return t.Home
	case domain.CategoryKitchen:
		return t.Kitchen
	case domain.CategoryDIY:
		return t.DIY
	case domain.CategoryElectrical:
		return t.Electrical
	case domain.CategoryToys:
		return t.Toys
	case domain.CategoryGrocery:
		return t.Grocery
	case domain.CategoryHealth:
		return t.Health
	case domain.CategoryBeauty:
		return t.Beauty
	case domain.CategoryPet:
		return t.Pet
	case domain.CategorySports:
		return t.Sports
	case domain.CategoryBaby:
		return t.Baby
	case domain.CategoryAutomotive:
		return t.Automotive
	case domain.CategoryGarden:
		return t.Home
	default:
		return t.Home
	}
}
