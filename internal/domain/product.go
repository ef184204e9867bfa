package domain

import "time"

// ItemCodeLength is the fixed length of a marketplace item code (ASIN).
const ItemCodeLength = 10

// Product represents a marketplace product seen during ingestion.
// Corresponds to the products table in PostgreSQL. The ASIN is the
// immutable key; every other field is overwritten on each sighting.
type Product struct {
	ASIN             string // PRIMARY KEY, 10-character item code
	Title            string
	Brand            string
	ImageURL         string // empty string when no image is known (column is NOT NULL)
	RootCategoryID   *int64 // marketplace taxonomy root, nullable
	RootCategoryName string
	LastSeenAt       time.Time // start timestamp of the run that last saw this product
}
