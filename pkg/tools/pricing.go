package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abasto-labs/tendero/pkg/catalog"
	"github.com/abasto-labs/tendero/pkg/dataset"
)

// NewUnitPrice looks up published market prices for a product. asOf labels the
// snapshot date of the price table in the reply.
func NewUnitPrice(source dataset.MarketPriceSource, asOf string) catalog.Tool {
	type params struct {
		Product string `json:"product"`
		Brand   string `json:"brand"`
		Package string `json:"package"`
	}
	return catalog.Tool{
		Name: "get_unit_price",
		Description: "Consulta el precio unitario publicado de un producto, " +
			"opcionalmente filtrado por marca y empaque.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product": {Type: "string", Description: "Nombre del producto."},
			"brand":   {Type: "string", Description: "Marca del producto (opcional)."},
			"package": {Type: "string", Description: "Empaque del producto (opcional)."},
		}, "product"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			rows, err := source.MarketPrices(ctx)
			if err != nil {
				return "", fmt.Errorf("load market prices: %w", err)
			}
			return unitPriceReport(rows, p.Product, p.Brand, p.Package, asOf), nil
		},
	}
}

func unitPriceReport(rows []dataset.MarketPriceRecord, product, brand, pack, asOf string) string {
	matches := filterPrices(rows, product, brand, pack)
	if len(matches) == 0 {
		return "No se encontraron productos que coincidan con los criterios."
	}

	// Lock onto the brand and package of the first match so the average is
	// taken over a single variant, not a mix.
	firstBrand, firstPack := matches[0].Brand, matches[0].Package
	var variant []dataset.MarketPriceRecord
	for _, r := range matches {
		if r.Brand == firstBrand && r.Package == firstPack {
			variant = append(variant, r)
		}
	}

	var sum float64
	for _, r := range variant {
		sum += r.UnitPrice
	}
	avg := sum / float64(len(variant))

	var b strings.Builder
	fmt.Fprintf(&b, "Datos de PROFECO actualizados al %s\n", asOf)
	fmt.Fprintf(&b, "%s, %s, %s:\n", variant[0].Product, firstBrand, firstPack)
	fmt.Fprintf(&b, "Precio promedio: $%.2f\n", avg)

	seen := make(map[string]bool)
	for _, r := range variant {
		if seen[r.Store] {
			continue
		}
		seen[r.Store] = true
		fmt.Fprintf(&b, "%s: $%.2f\n", r.Store, r.UnitPrice)
		if len(seen) == 5 {
			break
		}
	}
	return b.String()
}

func filterPrices(rows []dataset.MarketPriceRecord, product, brand, pack string) []dataset.MarketPriceRecord {
	// Drop the last rune of the query so plural forms still match.
	needle := product
	if runes := []rune(needle); len(runes) > 1 {
		needle = string(runes[:len(runes)-1])
	}
	needle = strings.ToLower(needle)
	brand = strings.ToLower(brand)
	pack = strings.ToLower(pack)

	var out []dataset.MarketPriceRecord
	for _, r := range rows {
		if !strings.Contains(strings.ToLower(r.Product), needle) {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(r.Brand), brand) {
			continue
		}
		if pack != "" && !strings.Contains(strings.ToLower(r.Package), pack) {
			continue
		}
		out = append(out, r)
	}
	return out
}
