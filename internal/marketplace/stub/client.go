// Package stub provides a scripted in-memory marketplace client for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/Elhashino/amazon-deals/internal/marketplace"
)

// Client is a scripted marketplace.Client. Pages are keyed by
// (categoryID, page); product detail is keyed by item code. Optional
// error hooks simulate transient provider failures.
type Client struct {
	mu sync.Mutex

	Roots   map[string]marketplace.RootCategory
	Pages   map[PageKey][]marketplace.DealListItem
	Details map[string]marketplace.ProductDetail

	// RootsErr, when set, fails RootCategories.
	RootsErr error

	// ListingErrs holds errors returned for a page key before it starts
	// succeeding; each call consumes one.
	ListingErrs map[PageKey][]error

	// DetailErr, when set, fails ProductDetail.
	DetailErr error

	// Calls records every method invocation for assertions.
	Calls []string
}

// PageKey identifies one listing page of one root category.
type PageKey struct {
	CategoryID int64
	Page       int
}

// Compile-time interface check.
var _ marketplace.Client = (*Client)(nil)

// New creates an empty stub client.
func New() *Client {
	return &Client{
		Roots:       make(map[string]marketplace.RootCategory),
		Pages:       make(map[PageKey][]marketplace.DealListItem),
		Details:     make(map[string]marketplace.ProductDetail),
		ListingErrs: make(map[PageKey][]error),
	}
}

// RootCategories returns the scripted taxonomy.
func (c *Client) RootCategories(_ context.Context) (map[string]marketplace.RootCategory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, "RootCategories")
	if c.RootsErr != nil {
		return nil, c.RootsErr
	}
	out := make(map[string]marketplace.RootCategory, len(c.Roots))
	for k, v := range c.Roots {
		out[k] = v
	}
	return out, nil
}

// DealListing returns the scripted page, consuming any queued errors first.
func (c *Client) DealListing(_ context.Context, categoryIDs []int64, page int) ([]marketplace.DealListItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, fmt.Sprintf("DealListing(%v,%d)", categoryIDs, page))

	var key PageKey
	if len(categoryIDs) > 0 {
		key = PageKey{CategoryID: categoryIDs[0], Page: page}
	}
	if errs := c.ListingErrs[key]; len(errs) > 0 {
		err := errs[0]
		c.ListingErrs[key] = errs[1:]
		return nil, err
	}
	return c.Pages[key], nil
}

// ProductDetail returns scripted detail for known codes, silently
// omitting unknown ones the way the provider does.
func (c *Client) ProductDetail(_ context.Context, itemCodes []string) ([]marketplace.ProductDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, fmt.Sprintf("ProductDetail(%d codes)", len(itemCodes)))
	if c.DetailErr != nil {
		return nil, c.DetailErr
	}

	var out []marketplace.ProductDetail
	for _, code := range itemCodes {
		if d, ok := c.Details[code]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}
