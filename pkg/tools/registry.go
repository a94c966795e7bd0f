package tools

import (
	"time"

	"github.com/abasto-labs/tendero/pkg/catalog"
	"github.com/abasto-labs/tendero/pkg/dataset"
	"github.com/abasto-labs/tendero/pkg/inventory"
)

// Deps are the collaborators behind the full tool set.
type Deps struct {
	Reorder    *inventory.ReorderCalculator
	Forecaster *inventory.Forecaster
	LeadTimes  LeadTimeWriter
	Graph      GraphSource
	Prices     dataset.MarketPriceSource
	PricesAsOf string
	Tickets    TicketStore
	Pricebook  Pricebook
	Calendar   Calendar
	Player     Player
	Now        func() time.Time
}

// NewCatalog registers the complete tool set. Calendar, Player and Pricebook
// fall back to their defaults when unset.
func NewCatalog(d Deps) (*catalog.Catalog, error) {
	if d.Pricebook == nil {
		d.Pricebook = DefaultPricebook()
	}
	if d.Calendar == nil {
		d.Calendar = NoopCalendar{}
	}
	if d.Player == nil {
		d.Player = NoopPlayer{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return catalog.New(
		NewInventoryMetrics(d.Reorder),
		NewSaveLeadTime(d.LeadTimes),
		NewForecastSales(d.Forecaster),
		NewDepletionAlert(d.Forecaster),
		NewRecommendProducts(d.Graph),
		NewUnitPrice(d.Prices, d.PricesAsOf),
		NewConfirmTicket(d.Tickets, d.Pricebook, d.Now),
		NewCurrentTime(d.Now),
		NewListEvents(d.Calendar),
		NewSearchEvents(d.Calendar),
		NewAddEvent(d.Calendar),
		NewSetVolume(d.Player),
		NewPlayTrack(d.Player),
	)
}
