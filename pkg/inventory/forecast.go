package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abasto-labs/tendero/pkg/dataset"
)

const forecastWindow = 7

// Forecaster projects daily unit sales for a product. The model is a
// drift-adjusted moving average: the mean of the most recent window plus the
// average day-over-day change across the history, clamped at zero.
type Forecaster struct {
	source dataset.DemandSource
	// Window is the number of trailing observations averaged for the base level.
	Window int
}

func NewForecaster(source dataset.DemandSource) *Forecaster {
	return &Forecaster{source: source, Window: forecastWindow}
}

// Forecast returns a formatted per-day sales projection for the next n days.
func (f *Forecaster) Forecast(ctx context.Context, query string, days int) (string, error) {
	if days <= 0 {
		return "El número de días a pronosticar debe ser mayor a cero.", nil
	}
	product, values, err := f.series(ctx, query)
	if err != nil {
		return "", err
	}
	if product == "" {
		return "No se encontró información acerca de ese producto.", nil
	}
	if len(values) < 2 {
		return "No hay suficientes datos para realizar un pronóstico.", nil
	}

	projected := project(values, days)
	parts := make([]string, len(projected))
	for i, v := range projected {
		parts[i] = fmt.Sprintf("día %d: %.0f", i+1, v)
	}
	return fmt.Sprintf(
		"Las ventas pronosticadas para los siguientes %d días de %s son: %s",
		days, product, strings.Join(parts, ", "),
	), nil
}

// DepletionAlert walks the forecast against the latest inventory level and
// reports how many days remain until stock crosses the threshold.
func (f *Forecaster) DepletionAlert(ctx context.Context, query string, threshold float64) (string, error) {
	rows, err := f.source.DemandRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("load demand table: %w", err)
	}
	matched := filterByProduct(rows, query)
	if len(matched) == 0 {
		return "No se encontraron datos para el producto especificado.", nil
	}

	latest := matched[len(matched)-1]
	product := latest.Product
	current := latest.Inventory

	if current <= threshold {
		return fmt.Sprintf(
			"El inventario actual de %s (%.0f unidades) ya está por debajo del umbral de %.0f unidades. Considera reabastecer el inventario.",
			product, current, threshold,
		), nil
	}

	values := make([]float64, len(matched))
	for i, r := range matched {
		values[i] = r.Sales
	}
	if len(values) < 2 {
		return "No hay suficientes datos para realizar un pronóstico.", nil
	}

	for day, sales := range project(values, 30) {
		current -= sales
		if current <= threshold {
			return fmt.Sprintf(
				"El inventario de %s alcanzará el umbral de %.0f unidades en aproximadamente %d días.",
				product, threshold, day+1,
			), nil
		}
	}
	return fmt.Sprintf(
		"El inventario de %s se mantiene por encima del umbral de %.0f unidades durante los próximos 30 días.",
		product, threshold,
	), nil
}

func (f *Forecaster) series(ctx context.Context, query string) (string, []float64, error) {
	rows, err := f.source.DemandRecords(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("load demand table: %w", err)
	}
	matched := filterByProduct(rows, query)
	if len(matched) == 0 {
		return "", nil, nil
	}
	values := make([]float64, len(matched))
	for i, r := range matched {
		values[i] = r.Sales
	}
	return matched[0].Product, values, nil
}

func project(history []float64, days int) []float64 {
	window := forecastWindow
	if window > len(history) {
		window = len(history)
	}
	var base float64
	for _, v := range history[len(history)-window:] {
		base += v
	}
	base /= float64(window)

	var drift float64
	for i := 1; i < len(history); i++ {
		drift += history[i] - history[i-1]
	}
	drift /= float64(len(history) - 1)

	out := make([]float64, days)
	for i := range out {
		v := math.Round(base + drift*float64(i+1))
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}
