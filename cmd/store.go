package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/aozora-apps/sms-cli/internal/engine"
	"github.com/aozora-apps/sms-cli/internal/gateway"
	"github.com/aozora-apps/sms-cli/internal/store"
)

// initStore opens the configured store backend and ensures the schema
// exists.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEngine builds the engine over the configured store. The caller
// owns closing the returned store.
func initEngine(ctx context.Context) (*engine.Engine, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	gw := gateway.New(gateway.Options{
		UserAgent:         cfg.Gateway.UserAgent,
		Timeout:           time.Duration(cfg.Gateway.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
	})

	return engine.New(st, gw), st, nil
}
