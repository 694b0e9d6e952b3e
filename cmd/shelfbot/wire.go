package main

import (
	"fmt"

	"github.com/kalambet/shelfbot/internal/catalog"
	"github.com/kalambet/shelfbot/internal/config"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/search"
	"github.com/kalambet/shelfbot/internal/storage"
)

// shelf bundles the storage-backed services shared by every command.
type shelf struct {
	store   *storage.Store
	catalog *catalog.Catalog
	search  *search.Engine
}

func (s *shelf) Close() error {
	return s.store.Close()
}

// openShelf opens the database in cfg.Storage.DataDir. A nil resolver treats
// every stored message as live.
func openShelf(cfg config.Config, resolver catalog.Resolver, log logger.Logger) (*shelf, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	cat := catalog.New(store, resolver, log, catalog.Options{DefaultHelp: cfg.Help.Default})
	adLimit := cfg.Search.AdLimit
	if adLimit == 0 {
		// search.ad_limit: 0 in config means no ads.
		adLimit = -1
	}
	eng := search.NewEngine(cat, search.Options{
		PageSize: cfg.Search.PageSize,
		AdLimit:  adLimit,
	})
	return &shelf{store: store, catalog: cat, search: eng}, nil
}

// loadCLI loads config and a quiet logger for one-shot commands.
func loadCLI() (config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New("warn", true)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
