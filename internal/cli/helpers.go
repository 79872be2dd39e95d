package cli

import (
	"fmt"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// withStore opens the configured database, executes the function, and
// handles cleanup.
func withStore(fn func(*config.Config, *store.SQLStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(cfg, s)
}
