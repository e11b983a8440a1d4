// Package app wires together configuration, the API client, and the local
// store into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/derickschaefer/appmeta/internal/appstore"
	"github.com/derickschaefer/appmeta/internal/config"
	"github.com/derickschaefer/appmeta/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is opened lazily by RequireStore; commands that never persist
// anything do not touch the database file.
type Deps struct {
	Config *config.Config
	Client *appstore.Client
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	opts := cfg.ClientOptions()
	opts.Logger = logger
	client, err := appstore.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Deps{
		Config: cfg,
		Client: client,
	}, nil
}

// RequireStore opens the bbolt database at Config.DBPath if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set db_path or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
