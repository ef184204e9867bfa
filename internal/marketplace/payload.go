package marketplace

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// The upstream payload is inconsistent about field names across endpoints.
// These ordered alias lists are the stable extraction contract: the first
// present, usable value wins.
var (
	itemCodeAliases = []string{"asin", "ASIN", "Asin", "productCode"}
	imageURLAliases = []string{"imageUrl", "imageURL", "image", "image_url"}
)

// imageHostPrefix builds a served image URL from an imagesCSV entry.
const imageHostPrefix = "https://m.media-amazon.com/images/I/"

// ExtractItemCode resolves an item code from a loosely-typed payload
// object. Only exactly 10-character codes are accepted; returns "" when
// none of the aliases yields one.
func ExtractItemCode(obj map[string]json.RawMessage) string {
	for _, key := range itemCodeAliases {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// Some endpoints deliver codes as bare numbers.
			var n json.Number
			if err := json.Unmarshal(raw, &n); err != nil {
				continue
			}
			s = n.String()
		}
		s = strings.TrimSpace(s)
		if len(s) == domain.ItemCodeLength {
			return s
		}
	}
	return ""
}

// ExtractImageURL resolves a product image URL: the first imagesCSV entry
// wins, then the direct-field aliases. Returns "" when no image is known.
func ExtractImageURL(obj map[string]json.RawMessage) string {
	if raw, ok := obj["imagesCSV"]; ok {
		var csv string
		if err := json.Unmarshal(raw, &csv); err == nil {
			if first := strings.TrimSpace(strings.SplitN(csv, ",", 2)[0]); first != "" {
				return imageHostPrefix + first
			}
		}
	}
	for _, key := range imageURLAliases {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// wireProduct is the raw product-detail payload. History series arrive as
// parallel value/timestamp arrays; timestamps are unix seconds.
type wireProduct struct {
	Title            string         `json:"title"`
	Brand            string         `json:"brand"`
	RootCategory     *int64         `json:"rootCategory"`
	RootCategoryName string         `json:"rootCategoryName"`
	CategoryTree     []wireTreeNode `json:"categoryTree"`
	Data             wireHistory    `json:"data"`
}

type wireTreeNode struct {
	CatID int64  `json:"catId"`
	Name  string `json:"name"`
}

type wireHistory struct {
	New              []float64 `json:"NEW"`
	NewTime          []int64   `json:"NEW_time"`
	Amazon           []float64 `json:"AMAZON"`
	AmazonTime       []int64   `json:"AMAZON_time"`
	Sales            []float64 `json:"SALES"`
	SalesTime        []int64   `json:"SALES_time"`
	Rating           []float64 `json:"RATING"`
	RatingTime       []int64   `json:"RATING_time"`
	CountReviews     []float64 `json:"COUNT_REVIEWS"`
	CountReviewsTime []int64   `json:"COUNT_REVIEWS_time"`
}

// decodeProduct decodes one product payload, keeping the raw object around
// for alias-based extraction of code and image.
func decodeProduct(raw json.RawMessage) (ProductDetail, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ProductDetail{}, fmt.Errorf("decode product object: %w", err)
	}

	var wp wireProduct
	if err := json.Unmarshal(raw, &wp); err != nil {
		return ProductDetail{}, fmt.Errorf("decode product fields: %w", err)
	}

	tree := make([]string, 0, len(wp.CategoryTree))
	for _, node := range wp.CategoryTree {
		tree = append(tree, node.Name)
	}

	return ProductDetail{
		ItemCode:         ExtractItemCode(obj),
		Title:            truncate(wp.Title, 600),
		Brand:            truncate(wp.Brand, 200),
		ImageURL:         ExtractImageURL(obj),
		RootCategoryID:   wp.RootCategory,
		RootCategoryName: truncate(wp.RootCategoryName, 200),
		CategoryTree:     tree,
		History: domain.ProductHistory{
			PriceNew:    toSeries(wp.Data.New, wp.Data.NewTime),
			PriceAmazon: toSeries(wp.Data.Amazon, wp.Data.AmazonTime),
			SalesRank:   toSeries(wp.Data.Sales, wp.Data.SalesTime),
			Rating:      toSeries(wp.Data.Rating, wp.Data.RatingTime),
			ReviewCount: toSeries(wp.Data.CountReviews, wp.Data.CountReviewsTime),
		},
	}, nil
}

// toSeries pairs values with unix-second timestamps, trimming to the
// shorter of the two arrays.
func toSeries(values []float64, unixTimes []int64) domain.Series {
	n := len(values)
	if len(unixTimes) < n {
		n = len(unixTimes)
	}
	if n == 0 {
		return domain.Series{}
	}
	s := domain.Series{
		Values: values[:n],
		Times:  make([]time.Time, n),
	}
	for i := 0; i < n; i++ {
		s.Times[i] = time.Unix(unixTimes[i], 0).UTC()
	}
	return s
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
