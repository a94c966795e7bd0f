package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVFiles reads the three dataset snapshots from local CSV files. The files
// are refreshed out of band (synced from the store's blob container), so every
// call re-reads from disk and returns a fresh slice.
type CSVFiles struct {
	DemandPath string
	BasketPath string
	PricePath  string
}

var _ DemandSource = (*CSVFiles)(nil)
var _ BasketSource = (*CSVFiles)(nil)
var _ MarketPriceSource = (*CSVFiles)(nil)

func (c *CSVFiles) DemandRecords(ctx context.Context) ([]DemandRecord, error) {
	f, err := os.Open(c.DemandPath)
	if err != nil {
		return nil, fmt.Errorf("open demand table: %w", err)
	}
	defer f.Close()
	return DecodeDemandCSV(f)
}

func (c *CSVFiles) Baskets(ctx context.Context) ([][]string, error) {
	f, err := os.Open(c.BasketPath)
	if err != nil {
		return nil, fmt.Errorf("open basket table: %w", err)
	}
	defer f.Close()
	return DecodeBasketCSV(f)
}

func (c *CSVFiles) MarketPrices(ctx context.Context) ([]MarketPriceRecord, error) {
	f, err := os.Open(c.PricePath)
	if err != nil {
		return nil, fmt.Errorf("open price table: %w", err)
	}
	defer f.Close()
	return DecodeMarketPriceCSV(f)
}

// DecodeDemandCSV parses rows with columns
// product,date,cost,purchases,sales,inventory. Header row optional.
// Rows with an unparsable numeric field keep a zero in that field rather than
// failing the whole load; a row without a product name is skipped.
func DecodeDemandCSV(r io.Reader) ([]DemandRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []DemandRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read demand row: %w", err)
		}
		if len(row) < 6 || isDemandHeader(row) {
			continue
		}
		product := strings.TrimSpace(row[0])
		if product == "" {
			continue
		}
		out = append(out, DemandRecord{
			Product:   product,
			Date:      parseDate(row[1]),
			Cost:      parseNumber(row[2]),
			Purchases: parseNumber(row[3]),
			Sales:     parseNumber(row[4]),
			Inventory: parseNumber(row[5]),
		})
	}
	return out, nil
}

// DecodeBasketCSV parses the variable-width transaction table: one basket per
// row, one product per cell, trailing empty cells dropped. Baskets with fewer
// than one product are skipped.
func DecodeBasketCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read basket row: %w", err)
		}
		var basket []string
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			basket = append(basket, cell)
		}
		if len(basket) > 0 {
			out = append(out, basket)
		}
	}
	return out, nil
}

// DecodeMarketPriceCSV parses rows with columns
// product,brand,package,unit_price,store. Header row optional.
func DecodeMarketPriceCSV(r io.Reader) ([]MarketPriceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []MarketPriceRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read price row: %w", err)
		}
		if len(row) < 5 || strings.EqualFold(strings.TrimSpace(row[0]), "product") {
			continue
		}
		product := strings.TrimSpace(row[0])
		if product == "" {
			continue
		}
		out = append(out, MarketPriceRecord{
			Product:   product,
			Brand:     strings.TrimSpace(row[1]),
			Package:   strings.TrimSpace(row[2]),
			UnitPrice: parseNumber(row[3]),
			Store:     strings.TrimSpace(row[4]),
		})
	}
	return out, nil
}

func isDemandHeader(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(row[0]), "product")
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
