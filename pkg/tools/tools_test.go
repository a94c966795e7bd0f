package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abasto-labs/tendero/pkg/affinity"
	"github.com/abasto-labs/tendero/pkg/dataset"
	"github.com/abasto-labs/tendero/pkg/inventory"
)

type memoryLeadTimes struct {
	values map[string]float64
}

func (m *memoryLeadTimes) SetLeadTime(_ context.Context, product string, days float64) error {
	if m.values == nil {
		m.values = make(map[string]float64)
	}
	m.values[product] = days
	return nil
}

func (m *memoryLeadTimes) Get(_ context.Context, product string) (float64, bool, error) {
	d, ok := m.values[product]
	return d, ok, nil
}

type staticBaskets struct{ baskets [][]string }

func (s staticBaskets) Baskets(context.Context) ([][]string, error) { return s.baskets, nil }

type staticDemand struct{ rows []dataset.DemandRecord }

func (s staticDemand) DemandRecords(context.Context) ([]dataset.DemandRecord, error) {
	return s.rows, nil
}

type staticPrices struct{ rows []dataset.MarketPriceRecord }

func (s staticPrices) MarketPrices(context.Context) ([]dataset.MarketPriceRecord, error) {
	return s.rows, nil
}

func TestSaveLeadTime(t *testing.T) {
	lt := &memoryLeadTimes{}
	tool := NewSaveLeadTime(lt)

	out, err := tool.Handler(context.Background(), []byte(`{"product":"Arroz SOS","lead_time":3.5}`))
	require.NoError(t, err)
	assert.Equal(t, "El tiempo de entrega para 'Arroz SOS' se ha guardado como 3.5 días.", out)
	assert.Equal(t, 3.5, lt.values["Arroz SOS"])
}

func TestForecastDefaultsToSevenDays(t *testing.T) {
	rows := make([]dataset.DemandRecord, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, dataset.DemandRecord{
			Product: "Leche", Sales: 12, Inventory: 100,
			Date: time.Date(2024, 4, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	f := inventory.NewForecaster(staticDemand{rows: rows})
	tool := NewForecastSales(f)

	out, err := tool.Handler(context.Background(), []byte(`{"product":"leche"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "7 días")
}

func TestCurrentTimeFormat(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 5, 2, 9, 5, 0, 0, time.UTC) }
	tool := NewCurrentTime(now)

	out, err := tool.Handler(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "09:05", out)
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	tool := NewSetVolume(NoopPlayer{})

	out, err := tool.Handler(context.Background(), []byte(`{"percent":120}`))
	require.NoError(t, err)
	assert.Equal(t, "El volumen debe estar entre 0 y 100.", out)
}

func TestNoopCollaborators(t *testing.T) {
	vol, err := NoopPlayer{}.SetVolume(context.Background(), 50)
	require.NoError(t, err)
	assert.Contains(t, vol, "no está configurado")

	events, err := NoopCalendar{}.ListEvents(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, events, "no está configurado")
}

func TestNewCatalogRegistersFullToolSet(t *testing.T) {
	lt := &memoryLeadTimes{}
	demand := staticDemand{}
	c, err := NewCatalog(Deps{
		Reorder:    inventory.NewReorderCalculator(demand, lt),
		Forecaster: inventory.NewForecaster(demand),
		LeadTimes:  lt,
		Graph:      affinity.NewCache(staticBaskets{}),
		Prices:     staticPrices{},
		PricesAsOf: "16 de abril de 2024",
		Tickets:    &memoryTickets{},
	})
	require.NoError(t, err)

	specs := c.Specs()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"calculate_inventory_metrics",
		"save_lead_time",
		"forecast_sales",
		"inventory_depletion_alert",
		"recommend_products",
		"get_unit_price",
		"confirm_ticket",
		"get_current_time",
		"list_events",
		"search_events",
		"add_event",
		"set_volume",
		"play_track",
	}, names)
}

func TestRecommendProductsUsesSnapshot(t *testing.T) {
	cache := affinity.NewCache(staticBaskets{baskets: [][]string{
		{"Leche", "Pan"},
		{"Leche", "Pan"},
		{"Leche", "Huevo"},
	}})
	tool := NewRecommendProducts(cache)

	out, err := tool.Handler(context.Background(), []byte(`{"product":"leche","top_n":2}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Leche")
	assert.Contains(t, out, "Pan")
}
