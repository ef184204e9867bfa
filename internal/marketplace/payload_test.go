package marketplace

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawObject(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &obj))
	return obj
}

func TestExtractItemCode_AliasOrder(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"lowercase asin", `{"asin":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"uppercase ASIN", `{"ASIN":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"titlecase Asin", `{"Asin":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"productCode fallback", `{"productCode":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"asin wins over productCode", `{"productCode":"B0XXXXXXXX","asin":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"wrong length rejected", `{"asin":"SHORT"}`, ""},
		{"wrong length falls through to next alias", `{"asin":"SHORT","productCode":"B0ABCDEFGH"}`, "B0ABCDEFGH"},
		{"whitespace trimmed", `{"asin":" B0ABCDEFGH "}`, "B0ABCDEFGH"},
		{"missing entirely", `{"title":"x"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractItemCode(rawObject(t, tt.json))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			"imagesCSV first entry wins",
			`{"imagesCSV":"61abc.jpg,71def.jpg","imageUrl":"https://other/img.jpg"}`,
			"https://m.media-amazon.com/images/I/61abc.jpg",
		},
		{
			"direct field fallback",
			`{"imageUrl":"https://other/img.jpg"}`,
			"https://other/img.jpg",
		},
		{
			"alias order",
			`{"image_url":"https://c.example/x.jpg","image":"https://b.example/x.jpg"}`,
			"https://b.example/x.jpg",
		},
		{"empty csv skipped", `{"imagesCSV":""}`, ""},
		{"nothing known", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImageURL(rawObject(t, tt.json))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeProduct(t *testing.T) {
	raw := json.RawMessage(`{
		"asin": "B0ABCDEFGH",
		"title": "Cast Iron Casserole",
		"brand": "Acme",
		"imagesCSV": "61abc.jpg",
		"rootCategory": 3146201,
		"categoryTree": [
			{"catId": 3146201, "name": "Home & Kitchen"},
			{"catId": 11, "name": "Cookware"}
		],
		"data": {
			"NEW": [50.0, 40.0],
			"NEW_time": [1735689600, 1738368000],
			"SALES": [1200, 900],
			"SALES_time": [1735689600, 1738368000],
			"RATING": [45],
			"RATING_time": [1738368000],
			"COUNT_REVIEWS": [812],
			"COUNT_REVIEWS_time": [1738368000]
		}
	}`)

	d, err := decodeProduct(raw)
	require.NoError(t, err)

	assert.Equal(t, "B0ABCDEFGH", d.ItemCode)
	assert.Equal(t, "Cast Iron Casserole", d.Title)
	assert.Equal(t, "Acme", d.Brand)
	assert.Equal(t, "https://m.media-amazon.com/images/I/61abc.jpg", d.ImageURL)
	require.NotNil(t, d.RootCategoryID)
	assert.Equal(t, int64(3146201), *d.RootCategoryID)
	assert.Equal(t, []string{"Home & Kitchen", "Cookware"}, d.CategoryTree)

	require.Len(t, d.History.PriceNew.Values, 2)
	assert.Equal(t, 50.0, d.History.PriceNew.Values[0])
	assert.Equal(t, int64(1735689600), d.History.PriceNew.Times[0].Unix())
	require.Len(t, d.History.SalesRank.Values, 2)
	require.Len(t, d.History.Rating.Values, 1)
	assert.True(t, d.History.PriceAmazon.Empty())
}

func TestTruncate_KeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 600))

	// "é" is two bytes; a cut landing inside it must back off to the
	// rune boundary instead of emitting a half rune.
	s := strings.Repeat("é", 400)
	out := truncate(s, 601)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 600, len(out))

	out = truncate(s, 600)
	assert.Equal(t, 600, len(out))
}

func TestToSeries_MismatchedLengthsTrimmed(t *testing.T) {
	s := toSeries([]float64{1, 2, 3}, []int64{100, 200})
	assert.Len(t, s.Values, 2)
	assert.Len(t, s.Times, 2)
}
