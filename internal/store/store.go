// Package store persists saved media plans.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/model"
)

// ErrNotFound is returned when a plan does not exist.
var ErrNotFound = eris.New("store: not found")

// PlanFilter specifies criteria for listing plans.
type PlanFilter struct {
	Market string               `json:"market,omitempty"`
	Mode   model.AllocationMode `json:"mode,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for saved plans.
type Store interface {
	// SavePlan inserts or replaces a plan. An empty ID is assigned a new
	// uuid and a zero CreatedAt is set to now.
	SavePlan(ctx context.Context, plan *model.Plan) error
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		retry := newConnectRetry(cfg.ConnectAttempts, cfg.ConnectBackoffMs)
		err = retry.do(ctx, cfg.Driver, func(ctx context.Context) error {
			pg, perr := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
			if perr != nil {
				return perr
			}
			st = pg
			return nil
		})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

const defaultListLimit = 100

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
