package commands

import (
	"context"
	"fmt"

	"github.com/geoql-project/geoql/internal/config"
	"github.com/geoql-project/geoql/internal/eval"
	"github.com/geoql-project/geoql/internal/macro"
	"github.com/geoql-project/geoql/internal/store"

	// Blank-imported so their init() registers the backend with
	// internal/store's registry; ListBackends only reports what was
	// actually compiled in.
	_ "github.com/geoql-project/geoql/internal/store/duckdb"
	_ "github.com/geoql-project/geoql/internal/store/memory"
	_ "github.com/geoql-project/geoql/internal/store/postgres"
)

// openBackend opens the backend named by cfg.Backend with cfg.BackendDSN.
func openBackend(cfg *config.Config) (store.Backend, error) {
	return store.New(cfg.Backend, cfg.BackendDSN)
}

// newEvaluator opens cfg's configured backend and returns a fresh
// evaluator bound to cfg's resource budget, along with a closer.
func newEvaluator(ctx context.Context, cfg *config.Config) (*eval.Evaluator, func() error, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	rm := eval.NewResourceManager(eval.NewEnvironment(), cfg.Budget())
	ev := eval.New(ctx, backend, rm)

	macros, err := macro.NewLoader(cfg.MacroDir).Load()
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("load macros: %w", err)
	}
	ev.SetMacros(macros)

	return ev, backend.Close, nil
}
