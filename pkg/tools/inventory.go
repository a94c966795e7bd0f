// Package tools assembles the concrete tool set advertised to the assistant:
// inventory analytics, product recommendations, market pricing, order ticket
// capture, calendar access and playback control. Each constructor binds a
// collaborator to a catalog entry; cmd/server decides which collaborators are
// real and which are no-ops.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abasto-labs/tendero/pkg/catalog"
	"github.com/abasto-labs/tendero/pkg/inventory"
)

// LeadTimeWriter persists supplier lead times reported in conversation.
type LeadTimeWriter interface {
	SetLeadTime(ctx context.Context, product string, days float64) error
}

// NewInventoryMetrics exposes the EOQ/ROP calculator.
func NewInventoryMetrics(calc *inventory.ReorderCalculator) catalog.Tool {
	type params struct {
		Product string `json:"product"`
	}
	return catalog.Tool{
		Name: "calculate_inventory_metrics",
		Description: "Calcula la cantidad económica de pedido (EOQ) y el nivel de " +
			"reorden (ROP) de un producto a partir del historial de ventas.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product": {Type: "string", Description: "Nombre del producto a analizar."},
		}, "product"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return calc.Metrics(ctx, p.Product)
		},
	}
}

// NewSaveLeadTime records a supplier lead time for later EOQ/ROP runs.
func NewSaveLeadTime(writer LeadTimeWriter) catalog.Tool {
	type params struct {
		Product  string  `json:"product"`
		LeadTime float64 `json:"lead_time"`
	}
	return catalog.Tool{
		Name: "save_lead_time",
		Description: "Guarda el tiempo de entrega (en días) que el proveedor tarda " +
			"en surtir un producto.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product":   {Type: "string", Description: "Nombre del producto."},
			"lead_time": {Type: "number", Description: "Días que tarda el proveedor en entregar."},
		}, "product", "lead_time"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			if err := writer.SetLeadTime(ctx, p.Product, p.LeadTime); err != nil {
				return "", err
			}
			return fmt.Sprintf("El tiempo de entrega para '%s' se ha guardado como %g días.", p.Product, p.LeadTime), nil
		},
	}
}

// NewForecastSales exposes the moving-average sales forecast.
func NewForecastSales(f *inventory.Forecaster) catalog.Tool {
	type params struct {
		Product string `json:"product"`
		Days    int    `json:"days"`
	}
	return catalog.Tool{
		Name:        "forecast_sales",
		Description: "Pronostica las ventas diarias de un producto para los próximos días.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product": {Type: "string", Description: "Nombre del producto."},
			"days":    {Type: "integer", Description: "Horizonte del pronóstico en días.", Default: 7},
		}, "product"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			p := params{Days: 7}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return f.Forecast(ctx, p.Product, p.Days)
		},
	}
}

// NewDepletionAlert projects inventory forward and reports the day it falls
// under the given threshold.
func NewDepletionAlert(f *inventory.Forecaster) catalog.Tool {
	type params struct {
		Product   string  `json:"product"`
		Threshold float64 `json:"threshold"`
	}
	return catalog.Tool{
		Name: "inventory_depletion_alert",
		Description: "Estima en cuántos días el inventario de un producto caerá por " +
			"debajo de un umbral.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product":   {Type: "string", Description: "Nombre del producto."},
			"threshold": {Type: "number", Description: "Umbral de unidades en inventario.", Default: 10},
		}, "product"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			p := params{Threshold: 10}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return f.DepletionAlert(ctx, p.Product, p.Threshold)
		},
	}
}
