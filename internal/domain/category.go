package domain

// CategorySlug identifies one of the curated listing categories.
// The set is closed: the categorizer maps every product into exactly one
// of these slugs, defaulting to CategoryHome.
type CategorySlug string

const (
	CategoryHome       CategorySlug = "home"
	CategoryKitchen    CategorySlug = "kitchen"
	CategoryDIY        CategorySlug = "diy"
	CategoryToys       CategorySlug = "toys"
	CategoryElectrical CategorySlug = "electrical"
	CategoryGrocery    CategorySlug = "grocery"
	CategoryHealth     CategorySlug = "health"
	CategoryBeauty     CategorySlug = "beauty"
	CategoryPet        CategorySlug = "pet"
	CategorySports     CategorySlug = "sports"
	CategoryBaby       CategorySlug = "baby"
	CategoryAutomotive CategorySlug = "automotive"
	CategoryGarden     CategorySlug = "garden"
)

// AllCategorySlugs lists every slug in a stable order.
var AllCategorySlugs = []CategorySlug{
	CategoryHome,
	CategoryKitchen,
	CategoryDIY,
	CategoryToys,
	CategoryElectrical,
	CategoryGrocery,
	CategoryHealth,
	CategoryBeauty,
	CategoryPet,
	CategorySports,
	CategoryBaby,
	CategoryAutomotive,
	CategoryGarden,
}

// Valid reports whether s is a member of the closed slug set.
func (s CategorySlug) Valid() bool {
	switch s {
	case CategoryHome, CategoryKitchen, CategoryDIY, CategoryToys,
		CategoryElectrical, CategoryGrocery, CategoryHealth, CategoryBeauty,
		CategoryPet, CategorySports, CategoryBaby, CategoryAutomotive,
		CategoryGarden:
		return true
	}
	return false
}

// DisplayName returns the human-readable category name for listing pages.
func (s CategorySlug) DisplayName() string {
	switch s {
	case CategoryHome:
		return "Home"
	case CategoryKitchen:
		return "Kitchen"
	case CategoryDIY:
		return "DIY & Tools"
	case CategoryToys:
		return "Toys & Games"
	case CategoryElectrical:
		return "Electrical"
	case CategoryGrocery:
		return "Grocery"
	case CategoryHealth:
		return "Health"
	case CategoryBeauty:
		return "Beauty"
	case CategoryPet:
		return "Pet Supplies"
	case CategorySports:
		return "Sports & Outdoors"
	case CategoryBaby:
		return "Baby"
	case CategoryAutomotive:
		return "Automotive"
	case CategoryGarden:
		return "Garden"
	default:
		return string(s)
	}
}
