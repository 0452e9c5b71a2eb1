package main

import (
	"context"

	"github.com/sells-group/campaign-planner/internal/optimizer"
	"github.com/sells-group/campaign-planner/internal/planner"
	"github.com/sells-group/campaign-planner/internal/store"
)

// env bundles the planner service with the store it was built on.
type env struct {
	Service *planner.Service
	Store   store.Store
}

// Close releases the store, if any.
func (e *env) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

// initEnv loads the reference catalog and, when withStore is set, opens and
// migrates the plan store.
func initEnv(ctx context.Context, withStore bool) (*env, error) {
	if err := cfg.Validate("audience", "optimizer"); err != nil {
		return nil, err
	}
	if err := optimizer.ValidateConfig(cfg.Optimizer); err != nil {
		return nil, err
	}

	ref, err := planner.LoadReference(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	e := &env{}
	var opts []planner.Option
	if withStore {
		if err := cfg.Validate("store"); err != nil {
			return nil, err
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		e.Store = st
		opts = append(opts, planner.WithStore(st))
	}
	e.Service = planner.New(cfg, ref, opts...)
	return e, nil
}

// initStore opens and migrates the plan store on its own.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}
