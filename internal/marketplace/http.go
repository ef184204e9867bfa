package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.keepa.com"
	DefaultTimeout   = 60 * time.Second
	DefaultDomainID  = 2 // Amazon UK
	DefaultChunkSize = 25
	DefaultRateLimit = rate.Limit(1) // requests per second
	DefaultRateBurst = 5
)

// DefaultRetryDelays are the fixed backoff delays between transient-error
// retries; after they are exhausted one final attempt is made and its
// error surfaces to the caller.
var DefaultRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 12 * time.Second}

// HTTPClient implements Client against the provider's HTTP API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	domainID    int
	chunkSize   int
	retryDelays []time.Duration
	limiter     *rate.Limiter
	client      *http.Client
	onRetry     func()
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API endpoint (tests point this at a local server).
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = hc }
}

// WithRetryDelays overrides the fixed backoff schedule.
func WithRetryDelays(delays []time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retryDelays = delays }
}

// WithRateLimit sets the request budget. The client waits for budget
// instead of failing when it is exhausted.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *HTTPClient) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithChunkSize sets the product-detail batch size.
func WithChunkSize(n int) ClientOption {
	return func(c *HTTPClient) { c.chunkSize = n }
}

// WithRetryNotify registers a callback invoked once per retried request.
func WithRetryNotify(fn func()) ClientOption {
	return func(c *HTTPClient) { c.onRetry = fn }
}

// NewHTTPClient creates a live provider client.
func NewHTTPClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &HTTPClient{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		domainID:    DefaultDomainID,
		chunkSize:   DefaultChunkSize,
		retryDelays: DefaultRetryDelays,
		limiter:     rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		client:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// RootCategories returns the full root taxonomy.
func (c *HTTPClient) RootCategories(ctx context.Context) (map[string]RootCategory, error) {
	q := url.Values{}
	q.Set("category", "0")
	q.Set("parents", "0")

	body, err := c.get(ctx, "/category", q)
	if err != nil {
		return nil, fmt.Errorf("fetch root categories: %w", err)
	}

	var resp struct {
		Categories map[string]struct {
			CatID int64  `json:"catId"`
			Name  string `json:"name"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode root categories: %w", err)
	}

	out := make(map[string]RootCategory, len(resp.Categories))
	for id, cat := range resp.Categories {
		out[id] = RootCategory{ID: cat.CatID, Name: cat.Name}
	}
	return out, nil
}

// DealListing fetches one page of deal rows for the given category ids.
func (c *HTTPClient) DealListing(ctx context.Context, categoryIDs []int64, page int) ([]DealListItem, error) {
	selection := map[string]any{
		"page":              page,
		"domainId":          c.domainID,
		"includeCategories": categoryIDs,
		"isFilterEnabled":   true,
		"filterErotic":      true,
	}
	sel, err := json.Marshal(selection)
	if err != nil {
		return nil, fmt.Errorf("encode deal selection: %w", err)
	}

	q := url.Values{}
	q.Set("selection", string(sel))

	body, err := c.get(ctx, "/deal", q)
	if err != nil {
		return nil, fmt.Errorf("fetch deal listing page %d: %w", page, err)
	}

	// The listing rows live under "dr" on current responses and "deals"
	// on older ones.
	var resp struct {
		DR    []json.RawMessage `json:"dr"`
		Deals []json.RawMessage `json:"deals"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode deal listing: %w", err)
	}
	rows := resp.DR
	if len(rows) == 0 {
		rows = resp.Deals
	}

	items := make([]DealListItem, 0, len(rows))
	for _, raw := range rows {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		items = append(items, DealListItem{ItemCode: ExtractItemCode(obj)})
	}
	return items, nil
}

// ProductDetail batch-fetches product detail, chunking requests to keep
// payloads small enough to avoid provider timeouts.
func (c *HTTPClient) ProductDetail(ctx context.Context, itemCodes []string) ([]ProductDetail, error) {
	var out []ProductDetail
	for start := 0; start < len(itemCodes); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(itemCodes) {
			end = len(itemCodes)
		}
		chunk, err := c.productChunk(ctx, itemCodes[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (c *HTTPClient) productChunk(ctx context.Context, codes []string) ([]ProductDetail, error) {
	q := url.Values{}
	q.Set("asin", strings.Join(codes, ","))
	q.Set("domain", strconv.Itoa(c.domainID))
	q.Set("stats", "90")
	q.Set("history", "1")
	q.Set("rating", "1")
	// 120 days of history keeps payloads light while covering 90d stats.
	q.Set("days", "120")

	body, err := c.get(ctx, "/product", q)
	if err != nil {
		return nil, fmt.Errorf("fetch product detail: %w", err)
	}

	var resp struct {
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode product detail: %w", err)
	}

	out := make([]ProductDetail, 0, len(resp.Products))
	for _, raw := range resp.Products {
		detail, err := decodeProduct(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, detail)
	}
	return out, nil
}

// get performs one GET with rate-limit waiting and the fixed retry
// schedule. Each scheduled attempt that fails transiently sleeps the next
// delay; the final attempt's error is surfaced unwrapped so the operator
// sees the real cause.
func (c *HTTPClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		if attempt > 0 {
			if c.onRetry != nil {
				c.onRetry()
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}

		body, err := c.doGet(ctx, path, q)
		if err == nil {
			return body, nil
		}
		if !isTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *HTTPClient) doGet(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &transientError{err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// transientError marks an error as retryable under the fixed schedule.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
