package inventory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abasto-labs/tendero/pkg/dataset"
)

type fakeDemandSource struct {
	rows []dataset.DemandRecord
	err  error
}

func (f *fakeDemandSource) DemandRecords(context.Context) ([]dataset.DemandRecord, error) {
	return f.rows, f.err
}

type fakeLeadTimes struct {
	days  map[string]float64
	calls int
}

func (f *fakeLeadTimes) Get(_ context.Context, product string) (float64, bool, error) {
	f.calls++
	d, ok := f.days[product]
	return d, ok, nil
}

func demandRows() []dataset.DemandRecord {
	costs := []float64{10, 10, 0, 10, 10}
	purchases := []float64{0, 50, 0, 0, 50}
	sales := []float64{10, 12, 14, 12, 12}
	rows := make([]dataset.DemandRecord, len(sales))
	for i := range rows {
		rows[i] = dataset.DemandRecord{
			Product:   "Coca 300ml",
			Cost:      costs[i],
			Purchases: purchases[i],
			Sales:     sales[i],
		}
	}
	return rows
}

func TestMetricsClosedForm(t *testing.T) {
	source := &fakeDemandSource{rows: demandRows()}
	leads := &fakeLeadTimes{days: map[string]float64{"Coca 300ml": 4}}
	calc := NewReorderCalculator(source, leads)

	out, err := calc.Metrics(context.Background(), "coca")
	require.NoError(t, err)

	// Closed-form: cost=10, lot=50, ordering=240, demand=12, holding=1.15,
	// eoq=round(sqrt(2*12*240/1.15))=71; std=sqrt(2), rop=round(48+1.65*std)=50.
	eoq := math.Round(math.Sqrt(2 * 12 * 240 / 1.15))
	assert.Equal(t,
		"Cantidad a comprar (EOQ) para Coca 300ml: 71 unidades, Nivel de reorden (ROP): 50 unidades",
		out)
	assert.Equal(t, float64(71), eoq)
}

func TestMetricsUnknownProduct(t *testing.T) {
	source := &fakeDemandSource{rows: demandRows()}
	leads := &fakeLeadTimes{days: map[string]float64{}}
	calc := NewReorderCalculator(source, leads)

	out, err := calc.Metrics(context.Background(), "inexistente")
	require.NoError(t, err)
	assert.Contains(t, out, "No hay información acerca del producto")
	assert.Zero(t, leads.calls, "no lead time lookup for an unmatched product")
}

func TestMetricsMissingLeadTimePrompts(t *testing.T) {
	source := &fakeDemandSource{rows: demandRows()}
	calc := NewReorderCalculator(source, &fakeLeadTimes{days: map[string]float64{}})

	out, err := calc.Metrics(context.Background(), "Coca")
	require.NoError(t, err)
	assert.Contains(t, out, "No se encontró tiempo de entrega para Coca 300ml")
}

func TestMetricsZeroHoldingCostFallsBack(t *testing.T) {
	rows := demandRows()
	for i := range rows {
		rows[i].Cost = 0
	}
	source := &fakeDemandSource{rows: rows}
	leads := &fakeLeadTimes{days: map[string]float64{"Coca 300ml": 2}}
	calc := NewReorderCalculator(source, leads)

	out, err := calc.Metrics(context.Background(), "coca")
	require.NoError(t, err)
	assert.Contains(t, out, "(EOQ) para Coca 300ml: 15 unidades")
}

func TestMetricsSingleRowHasZeroSafetyStock(t *testing.T) {
	source := &fakeDemandSource{rows: []dataset.DemandRecord{
		{Product: "Pan Bimbo", Cost: 20, Purchases: 10, Sales: 5},
	}}
	leads := &fakeLeadTimes{days: map[string]float64{"Pan Bimbo": 3}}
	calc := NewReorderCalculator(source, leads)

	out, err := calc.Metrics(context.Background(), "pan")
	require.NoError(t, err)
	// rop = round(5*3 + 0) with no stddev from one observation.
	assert.Contains(t, out, "(ROP): 15 unidades")
}

func TestMetricsSourceFailure(t *testing.T) {
	source := &fakeDemandSource{err: errors.New("blob unreachable")}
	calc := NewReorderCalculator(source, &fakeLeadTimes{})

	_, err := calc.Metrics(context.Background(), "coca")
	require.Error(t, err)
}

func TestForecastAndDepletion(t *testing.T) {
	rows := []dataset.DemandRecord{
		{Product: "Leche Lala 1L", Sales: 10, Inventory: 100},
		{Product: "Leche Lala 1L", Sales: 10, Inventory: 90},
		{Product: "Leche Lala 1L", Sales: 10, Inventory: 80},
	}
	f := NewForecaster(&fakeDemandSource{rows: rows})

	out, err := f.Forecast(context.Background(), "leche", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "Leche Lala 1L")
	assert.Contains(t, out, "día 1: 10")

	// Flat 10/day from 80 units: threshold 50 crossed on day 3.
	alert, err := f.DepletionAlert(context.Background(), "leche", 50)
	require.NoError(t, err)
	assert.Contains(t, alert, "3 días")
}

func TestDepletionAlreadyBelowThreshold(t *testing.T) {
	rows := []dataset.DemandRecord{{Product: "Arroz", Sales: 2, Inventory: 4}}
	f := NewForecaster(&fakeDemandSource{rows: rows})

	out, err := f.DepletionAlert(context.Background(), "arroz", 10)
	require.NoError(t, err)
	assert.Contains(t, out, "ya está por debajo del umbral")
}

func TestForecastInsufficientData(t *testing.T) {
	rows := []dataset.DemandRecord{{Product: "Azúcar", Sales: 3}}
	f := NewForecaster(&fakeDemandSource{rows: rows})

	out, err := f.Forecast(context.Background(), "azúcar", 5)
	require.NoError(t, err)
	assert.Equal(t, "No hay suficientes datos para realizar un pronóstico.", out)
}
