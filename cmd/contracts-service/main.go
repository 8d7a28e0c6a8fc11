package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/auth"
	"github.com/nurpe/energy-contracts/internal/config"
	"github.com/nurpe/energy-contracts/internal/db"
	"github.com/nurpe/energy-contracts/internal/excel"
	httphandler "github.com/nurpe/energy-contracts/internal/http"
	"github.com/nurpe/energy-contracts/internal/http/middleware"
	"github.com/nurpe/energy-contracts/internal/logger"
	"github.com/nurpe/energy-contracts/internal/metrics"
	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/pdf"
	"github.com/nurpe/energy-contracts/internal/refresh"
	"github.com/nurpe/energy-contracts/internal/repository"
	"github.com/nurpe/energy-contracts/internal/service"
)

const pdfHistoryRows = 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}

	collector := metrics.NewCollector()
	notifier := refresh.NewNotifier()
	defer notifier.Close()
	unsubscribe := notifier.Subscribe(collector.RefreshObserved)
	defer unsubscribe()

	contracts := service.NewContractService(store, notifier, cfg.Contracts, log, service.WithMetrics(collector))
	documents := service.NewDocumentService(store, cfg.Contracts.MaxUploadBytes, log)
	exports := service.NewExportService(contracts, excel.NewGenerator(), pdf.NewGenerator(pdfHistoryRows), excel.SanitizeFileName)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contracts, documents, exports, notifier, cfg.Contracts.MaxUploadBytes, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterConfig{
		Environment: cfg.Environment,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Metrics:     collector.Handler(),
		Log:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Str("storage", cfg.DB.Driver).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func openStore(cfg *config.Config, log zerolog.Logger) (repository.Store, error) {
	if cfg.DB.Driver == config.StorageDriverMemory {
		store := repository.NewMemoryStore()
		seedDemo(store, log)
		return store, nil
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return repository.NewPostgresStore(database), nil
}

// seedDemo gives the in-memory store one agent and one customer so the API
// is usable without a database.
func seedDemo(store *repository.MemoryStore, log zerolog.Logger) {
	luce := decimal.RequireFromString("50.00")
	gas := decimal.RequireFromString("35.00")
	agent := store.AddAgent(model.Agent{
		ID:                    uuid.MustParse("6f1c1d2e-8a44-4f0b-9a53-0c6a7f1d2b01"),
		Name:                  "Agente demo",
		DefaultCommissionLuce: &luce,
		DefaultCommissionGas:  &gas,
	})
	customer := store.AddCustomer(model.Customer{
		ID:          uuid.MustParse("0b7e3a55-2d0c-4c8e-8f7e-3b9a1c4d5e02"),
		Kind:        model.CustomerKindPrivate,
		DisplayName: "Cliente demo",
		AgentID:     &agent.ID,
	})
	log.Warn().
		Stringer("agent_id", agent.ID).
		Stringer("customer_id", customer.ID).
		Msg("memory storage: data is lost on restart")
}
