// Package inventory computes replenishment metrics from the store's historical
// demand table: economic order quantities, reorder points, short-range sales
// forecasts and depletion projections.
package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abasto-labs/tendero/pkg/dataset"
)

// LeadTimes is the per-product lead time lookup the calculator reads from.
type LeadTimes interface {
	Get(ctx context.Context, product string) (float64, bool, error)
}

const (
	defaultInterestRate     = 0.115
	defaultOrderingFraction = 0.48
	defaultServiceLevelZ    = 1.65
	defaultFallbackEOQ      = 15
)

// ReorderCalculator derives EOQ and ROP for a product from historical demand.
type ReorderCalculator struct {
	source    dataset.DemandSource
	leadTimes LeadTimes

	// AnnualInterestRate feeds the per-unit holding cost.
	AnnualInterestRate float64
	// OrderingCostFraction scales mean cost × mean purchase lot into an
	// ordering cost estimate.
	OrderingCostFraction float64
	// ServiceLevelZ is the one-sided z-score used for safety stock.
	ServiceLevelZ float64
	// FallbackEOQ is returned when the holding cost degenerates to zero.
	FallbackEOQ int
}

func NewReorderCalculator(source dataset.DemandSource, leadTimes LeadTimes) *ReorderCalculator {
	return &ReorderCalculator{
		source:               source,
		leadTimes:            leadTimes,
		AnnualInterestRate:   defaultInterestRate,
		OrderingCostFraction: defaultOrderingFraction,
		ServiceLevelZ:        defaultServiceLevelZ,
		FallbackEOQ:          defaultFallbackEOQ,
	}
}

// Metrics computes EOQ and ROP for the first product whose name contains the
// query, case-insensitively. Missing data and a missing lead time are
// conversational outcomes, not errors; only a failed dataset load is an error.
func (c *ReorderCalculator) Metrics(ctx context.Context, query string) (string, error) {
	rows, err := c.source.DemandRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("load demand table: %w", err)
	}

	matched := filterByProduct(rows, query)
	if len(matched) == 0 {
		return fmt.Sprintf("No hay información acerca del producto: %s", query), nil
	}
	product := matched[0].Product

	leadTime, ok, err := c.leadTimes.Get(ctx, product)
	if err != nil {
		return "", fmt.Errorf("lookup lead time for %q: %w", product, err)
	}
	if !ok {
		return fmt.Sprintf(
			"No se encontró tiempo de entrega para %s (el tiempo de entrega es el tiempo que tarda en llegar el producto desde que se ordena). Por favor, ingresa el tiempo de entrega en días de %s:",
			product, product,
		), nil
	}

	costPerUnit := meanPositive(matched, func(r dataset.DemandRecord) float64 { return r.Cost })
	purchaseLot := meanPositive(matched, func(r dataset.DemandRecord) float64 { return r.Purchases })
	orderingCost := costPerUnit * purchaseLot * c.OrderingCostFraction

	dailyDemand := mean(matched, func(r dataset.DemandRecord) float64 { return r.Sales })
	demandStdDev := sampleStdDev(matched, func(r dataset.DemandRecord) float64 { return r.Sales })
	safetyStock := c.ServiceLevelZ * demandStdDev

	holdingCost := costPerUnit * c.AnnualInterestRate

	eoq := float64(c.FallbackEOQ)
	if holdingCost > 0 {
		eoq = math.Round(math.Sqrt(2 * dailyDemand * orderingCost / holdingCost))
	}
	rop := math.Round(dailyDemand*leadTime + safetyStock)

	return fmt.Sprintf(
		"Cantidad a comprar (EOQ) para %s: %.0f unidades, Nivel de reorden (ROP): %.0f unidades",
		product, eoq, rop,
	), nil
}

func filterByProduct(rows []dataset.DemandRecord, query string) []dataset.DemandRecord {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var out []dataset.DemandRecord
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Product), needle) {
			out = append(out, r)
		}
	}
	return out
}

func mean(rows []dataset.DemandRecord, field func(dataset.DemandRecord) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += field(r)
	}
	return sum / float64(len(rows))
}

// meanPositive averages only the strictly positive values, mirroring how the
// demand table records zero-cost and zero-purchase days.
func meanPositive(rows []dataset.DemandRecord, field func(dataset.DemandRecord) float64) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		if v := field(r); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// sampleStdDev returns zero when fewer than two observations exist.
func sampleStdDev(rows []dataset.DemandRecord, field func(dataset.DemandRecord) float64) float64 {
	if len(rows) < 2 {
		return 0
	}
	m := mean(rows, field)
	var ss float64
	for _, r := range rows {
		d := field(r) - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rows)-1))
}
