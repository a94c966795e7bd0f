package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/abasto-labs/tendero/pkg/affinity"
	"github.com/abasto-labs/tendero/pkg/agent"
	"github.com/abasto-labs/tendero/pkg/agent/openaiprov"
	"github.com/abasto-labs/tendero/pkg/config"
	"github.com/abasto-labs/tendero/pkg/dataset"
	"github.com/abasto-labs/tendero/pkg/inventory"
	"github.com/abasto-labs/tendero/pkg/logx"
	"github.com/abasto-labs/tendero/pkg/server"
	"github.com/abasto-labs/tendero/pkg/store"
	"github.com/abasto-labs/tendero/pkg/tools"
	"github.com/abasto-labs/tendero/pkg/whatsapp"
)

type appConfig struct {
	Addr         string `envconfig:"CHAT_SERVER_ADDR" default:":8090"`
	DBPath       string `envconfig:"CHAT_DB_PATH" default:"./tendero.db"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`

	DemandCSV  string `envconfig:"DEMAND_CSV" default:"./data/demand.csv"`
	BasketCSV  string `envconfig:"BASKET_CSV" default:"./data/baskets.csv"`
	PricesCSV  string `envconfig:"PRICES_CSV" default:"./data/market_prices.csv"`
	PricesAsOf string `envconfig:"PRICES_AS_OF" default:"16 de abril de 2024"`
}

// leadTimeStore narrows the store to the calculator's lookup contract.
type leadTimeStore struct {
	*store.Store
}

func (l leadTimeStore) Get(ctx context.Context, product string) (float64, bool, error) {
	return l.GetLeadTime(ctx, product)
}

func main() {
	logx.Init(*config.MustLoad[logx.Config]("LOG"))
	cfg := config.MustLoad[appConfig]("")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open store failed")
	}
	defer st.Close()

	waCfg := config.MustLoad[whatsapp.Config]("")
	waClient := whatsapp.NewClient(*waCfg)
	if !waClient.IsConfigured() {
		log.Warn().Msg("twilio not configured; replies will not be delivered")
	}

	oaiClient := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	provider := openaiprov.New(oaiClient)

	data := &dataset.CSVFiles{
		DemandPath: cfg.DemandCSV,
		BasketPath: cfg.BasketCSV,
		PricePath:  cfg.PricesCSV,
	}
	leadTimes := leadTimeStore{st}

	toolCatalog, err := tools.NewCatalog(tools.Deps{
		Reorder:    inventory.NewReorderCalculator(data, leadTimes),
		Forecaster: inventory.NewForecaster(data),
		LeadTimes:  st,
		Graph:      affinity.NewCache(data),
		Prices:     data,
		PricesAsOf: cfg.PricesAsOf,
		Tickets:    st,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build tool catalog failed")
	}

	runner := agent.NewRunner(provider, st, toolCatalog, agent.DefaultDefinition(toolCatalog))

	srv := server.New(runner, st, waClient, waClient, provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
