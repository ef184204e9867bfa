// Package marketplace talks to the Keepa-style marketplace data provider:
// root category lookup, deal listing pages and batched product detail with
// per-product history series.
package marketplace

import (
	"context"
	"errors"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// ErrNoAPIKey is returned when constructing a live client without credentials.
var ErrNoAPIKey = errors.New("marketplace: api key required")

// RootCategory is one top-level taxonomy node.
type RootCategory struct {
	ID   int64
	Name string
}

// DealListItem is one row of a deal-listing page. ItemCode is already
// resolved through the field-alias contract and may be empty when the row
// carried no usable code.
type DealListItem struct {
	ItemCode string
}

// ProductDetail is the decoded product payload for one item, including the
// raw history series the extractor consumes. ItemCode is alias-resolved
// and empty when the payload carried none; the coordinator drops such rows.
type ProductDetail struct {
	ItemCode         string
	Title            string
	Brand            string
	ImageURL         string
	RootCategoryID   *int64
	RootCategoryName string
	CategoryTree     []string

	History domain.ProductHistory
}

// Client is the provider contract the run coordinator consumes.
// Implementations are expected to wait for rate-limit budget rather than
// fail, and to retry transient network errors internally.
type Client interface {
	// RootCategories returns the full root taxonomy keyed by category id
	// (stringified, as delivered on the wire).
	RootCategories(ctx context.Context) (map[string]RootCategory, error)

	// DealListing fetches one page of deal rows for the given root
	// category ids.
	DealListing(ctx context.Context, categoryIDs []int64, page int) ([]DealListItem, error)

	// ProductDetail batch-fetches detail for the given item codes,
	// chunking internally. Responses may omit or reorder items.
	ProductDetail(ctx context.Context, itemCodes []string) ([]ProductDetail, error)
}
