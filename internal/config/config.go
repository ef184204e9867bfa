// Package config loads the process configuration from the environment.
// Configuration is constructed once at startup and passed by value into
// the run coordinator; there is no ambient global state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Elhashino/amazon-deals/internal/category"
)

// Config is the full process configuration.
type Config struct {
	DatabaseURL string `validate:"required"`
	KeepaAPIKey string `validate:"required"`

	// AmazonAssocTag is appended to outbound product links when set.
	AmazonAssocTag string

	Ingestion Ingestion
}

// Ingestion holds the run coordinator's knobs.
type Ingestion struct {
	// PagesPerRootCategory bounds the listing pagination per curated root.
	PagesPerRootCategory int `validate:"min=1"`

	// PurgeStart empties the deals table before the run begins. Eager and
	// destructive: a run that later fails leaves an empty catalog, so the
	// safe default is false.
	PurgeStart bool

	// PurgeEnd deletes every deal not touched by the current run after a
	// successful pass. Default true.
	PurgeEnd bool

	// Thresholds are the per-category minimum discount fractions.
	Thresholds category.Thresholds
}

// Load reads configuration from the environment and validates it.
// A missing required value is fatal here, before any run begins.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		KeepaAPIKey:    os.Getenv("KEEPA_API_KEY"),
		AmazonAssocTag: os.Getenv("AMAZON_ASSOC_TAG"),
		Ingestion: Ingestion{
			PagesPerRootCategory: 2,
			PurgeStart:           false,
			PurgeEnd:             true,
			Thresholds:           category.DefaultThresholds(),
		},
	}

	if v := os.Getenv("DEALS_PAGES_PER_ROOT_CATEGORY"); v != "" {
		pages, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEALS_PAGES_PER_ROOT_CATEGORY %q: %w", v, err)
		}
		cfg.Ingestion.PagesPerRootCategory = pages
	}

	if v := os.Getenv("PURGE_DEALS_ON_START"); v != "" {
		cfg.Ingestion.PurgeStart = parseSwitch(v)
	}
	if v := os.Getenv("PURGE_DEALS_ON_END"); v != "" {
		cfg.Ingestion.PurgeEnd = parseSwitch(v)
	}

	th := &cfg.Ingestion.Thresholds
	// "garden" has no variable of its own: it aliases home's threshold.
	for _, t := range []struct {
		env string
		dst *float64
	}{
		{"MIN_DISCOUNT_HOME", &th.Home},
		{"MIN_DISCOUNT_KITCHEN", &th.Kitchen},
		{"MIN_DISCOUNT_DIY", &th.DIY},
		{"MIN_DISCOUNT_ELECTRICAL", &th.Electrical},
		{"MIN_DISCOUNT_TOYS", &th.Toys},
		{"MIN_DISCOUNT_GROCERY", &th.Grocery},
		{"MIN_DISCOUNT_HEALTH", &th.Health},
		{"MIN_DISCOUNT_BEAUTY", &th.Beauty},
		{"MIN_DISCOUNT_PET", &th.Pet},
		{"MIN_DISCOUNT_SPORTS", &th.Sports},
		{"MIN_DISCOUNT_BABY", &th.Baby},
		{"MIN_DISCOUNT_AUTOMOTIVE", &th.Automotive},
	} {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", t.env, v, err)
		}
		*t.dst = f
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Server is the configuration subset the read API needs. The provider
// API key is deliberately absent: the server never talks to the provider.
type Server struct {
	DatabaseURL    string `validate:"required"`
	AmazonAssocTag string
}

// LoadServer reads and validates the read API's configuration.
func LoadServer() (*Server, error) {
	cfg := &Server{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AmazonAssocTag: os.Getenv("AMAZON_ASSOC_TAG"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate server config: %w", err)
	}
	return cfg, nil
}

// parseSwitch interprets an operational on/off flag: everything except
// "0", "false" and "no" counts as on.
func parseSwitch(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}
