package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plans (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	market       TEXT NOT NULL,
	mode         TEXT NOT NULL,
	total_budget DOUBLE PRECISION NOT NULL DEFAULT 0,
	allocations  JSONB NOT NULL,
	metrics      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plans_market ON plans(market);
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan *model.Plan) error {
	allocJSON, metricsJSON, err := preparePlan(plan)
	if err != nil {
		return eris.Wrap(err, "postgres: save plan")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO plans (id, name, market, mode, total_budget, allocations, metrics, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, market = EXCLUDED.market, mode = EXCLUDED.mode,
		   total_budget = EXCLUDED.total_budget, allocations = EXCLUDED.allocations,
		   metrics = EXCLUDED.metrics`,
		plan.ID, plan.Name, plan.Market, string(plan.Mode), plan.TotalBudget,
		allocJSON, metricsJSON, plan.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save plan %s", plan.ID)
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, market, mode, total_budget, allocations, metrics, created_at FROM plans WHERE id = $1`,
		id,
	)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "plan %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get plan %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	query := `SELECT id, name, market, mode, total_budget, allocations, metrics, created_at FROM plans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Market != "" {
		query += fmt.Sprintf(` AND market = $%d`, argIdx)
		args = append(args, filter.Market)
		argIdx++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id ASC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list plans")
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan plan")
		}
		plans = append(plans, *p)
	}
	return plans, eris.Wrap(rows.Err(), "postgres: list plans iterate")
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete plan %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "plan %s", id)
	}
	return nil
}
