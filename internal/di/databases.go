package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/config"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/database"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/history"
)

// InitializeDatabases opens the price history database. In dev mode an empty
// database gets the daily_prices table so the server starts without ingestion.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDB,
		Profile: database.ProfileReadMostly,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	if cfg.DevMode {
		if err := historyDB.EnsureSchema(context.Background(), history.Schema); err != nil {
			historyDB.Close()
			return nil, err
		}
	}

	log.Info().Str("path", historyDB.Path()).Msg("History database opened")
	return container, nil
}
