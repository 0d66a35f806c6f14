package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vsinha/seasonplan/pkg/application/services/orchestration"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/infrastructure/config"
	"github.com/vsinha/seasonplan/pkg/infrastructure/events"
	"github.com/vsinha/seasonplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/seasonplan/pkg/infrastructure/repositories/memory"
)

// inputFlags are the data sources shared by every season command
type inputFlags struct {
	configFile  string
	storesFile  string
	historyFile string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to the season YAML file")
	cmd.Flags().StringVar(&f.storesFile, "stores", "", "Path to the stores CSV file (overrides data.stores)")
	cmd.Flags().StringVar(&f.historyFile, "history", "", "Path to the sales history CSV file (overrides data.history)")
	_ = cmd.MarkFlagRequired("config")
}

// session is a loaded season ready to start
type session struct {
	file         *config.File
	season       entities.SeasonConfig
	orchestrator *orchestration.SeasonOrchestrator
}

func (f *inputFlags) load(logger *slog.Logger) (*session, error) {
	file, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	season, err := file.ToSeasonConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.configFile, err)
	}

	storesPath := firstNonEmpty(f.storesFile, file.Data.Stores)
	if storesPath == "" {
		return nil, fmt.Errorf("no stores file: pass --stores or set data.stores")
	}

	loader := csv.NewLoader()
	stores, err := loader.LoadStores(storesPath)
	if err != nil {
		return nil, fmt.Errorf("error loading stores: %w", err)
	}
	storeRepo := memory.NewStoreRepository(len(stores))
	if err := storeRepo.LoadStores(stores); err != nil {
		return nil, fmt.Errorf("failed to load stores into repository: %w", err)
	}

	historyRepo := memory.NewHistoryRepository()
	if historyPath := firstNonEmpty(f.historyFile, file.Data.History); historyPath != "" {
		sales, err := loader.LoadHistory(historyPath)
		if err != nil {
			return nil, fmt.Errorf("error loading history: %w", err)
		}
		if err := historyRepo.LoadSales(sales); err != nil {
			return nil, fmt.Errorf("failed to load history into repository: %w", err)
		}
		logger.Debug("inputs loaded", "stores", len(stores), "history_rows", len(sales))
	}

	orch := orchestration.NewSeasonOrchestrator(storeRepo, historyRepo, memory.NewSeasonRepository(),
		orchestration.WithLogger(logger),
		orchestration.WithEventStore(events.NewInMemoryEventStore(logger)),
	)
	return &session{file: file, season: season, orchestrator: orch}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
