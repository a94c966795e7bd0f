// Package dataset defines the tabular contracts the analytical tools consume
// and decoders for the CSV snapshots the store's data provider exports.
package dataset

import (
	"context"
	"time"
)

// DemandRecord is one row of the historical transaction table.
type DemandRecord struct {
	Product   string
	Date      time.Time
	Cost      float64
	Purchases float64
	Sales     float64
	Inventory float64
}

// MarketPriceRecord is one row of the published market price table.
type MarketPriceRecord struct {
	Product   string
	Brand     string
	Package   string
	UnitPrice float64
	Store     string
}

// DemandSource provides the historical demand table for a snapshot.
// Implementations own where the bytes come from (blob storage, local file).
type DemandSource interface {
	DemandRecords(ctx context.Context) ([]DemandRecord, error)
}

// BasketSource provides the co-purchase transaction table: each basket is the
// list of product names bought together in one transaction.
type BasketSource interface {
	Baskets(ctx context.Context) ([][]string, error)
}

// MarketPriceSource provides the market price table.
type MarketPriceSource interface {
	MarketPrices(ctx context.Context) ([]MarketPriceRecord, error)
}
