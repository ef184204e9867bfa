package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCuratedRootIDs(t *testing.T) {
	roots := map[string]RootCategory{
		"3146201": {ID: 3146201, Name: "Home & Kitchen"},
		"79903":   {ID: 79903, Name: "DIY & Tools"},
		"468292":  {ID: 468292, Name: "Toys & Games"},
		"560798":  {ID: 560798, Name: "Electronics & Photo"},
		"11052591": {ID: 11052591, Name: "Garden & Outdoors"},
		"66280031": {ID: 66280031, Name: "Grocery"},
		"9999999": {ID: 9999999, Name: "Unrelated Department"},
	}

	curated := ResolveCuratedRootIDs(roots)

	assert.Equal(t, int64(3146201), curated["home_kitchen"])
	assert.Equal(t, int64(79903), curated["diy_tools"])
	assert.Equal(t, int64(468292), curated["toys_games"])
	assert.Equal(t, int64(560798), curated["electronics"])
	assert.Equal(t, int64(11052591), curated["garden"])
	assert.Equal(t, int64(66280031), curated["grocery"])

	// Targets with no matching root are simply absent.
	_, ok := curated["beauty"]
	assert.False(t, ok)
}

func TestResolveCuratedRootIDs_AllKeywordsRequired(t *testing.T) {
	// "garden" requires both garden and outdoor in the name.
	roots := map[string]RootCategory{
		"1": {ID: 1, Name: "Garden"},
	}
	curated := ResolveCuratedRootIDs(roots)
	_, ok := curated["garden"]
	assert.False(t, ok)
}

func TestUniqueSortedIDs(t *testing.T) {
	curated := map[string]int64{
		"home_kitchen": 300,
		"diy_tools":    100,
		"toys_games":   300, // duplicate id
		"electronics":  200,
	}

	ids := UniqueSortedIDs(curated)
	assert.Equal(t, []int64{100, 200, 300}, ids)
}
