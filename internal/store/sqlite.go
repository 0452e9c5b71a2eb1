package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/campaign-planner/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plans (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	market       TEXT NOT NULL,
	mode         TEXT NOT NULL,
	total_budget REAL NOT NULL DEFAULT 0,
	allocations  TEXT NOT NULL,
	metrics      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plans_market ON plans(market);
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePlan(ctx context.Context, plan *model.Plan) error {
	allocJSON, metricsJSON, err := preparePlan(plan)
	if err != nil {
		return eris.Wrap(err, "sqlite: save plan")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, name, market, mode, total_budget, allocations, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, market = excluded.market, mode = excluded.mode,
		   total_budget = excluded.total_budget, allocations = excluded.allocations,
		   metrics = excluded.metrics`,
		plan.ID, plan.Name, plan.Market, string(plan.Mode), plan.TotalBudget,
		string(allocJSON), string(metricsJSON), plan.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save plan %s", plan.ID)
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, market, mode, total_budget, allocations, metrics, created_at FROM plans WHERE id = ?`,
		id,
	)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "plan %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get plan %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	query := `SELECT id, name, market, mode, total_budget, allocations, metrics, created_at FROM plans WHERE 1=1`
	var args []any

	if filter.Market != "" {
		query += ` AND market = ?`
		args = append(args, filter.Market)
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list plans")
	}
	defer rows.Close() //nolint:errcheck

	var plans []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan plan")
		}
		plans = append(plans, *p)
	}
	return plans, eris.Wrap(rows.Err(), "sqlite: list plans iterate")
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete plan %s", id)
	}
	return checkRowsAffected(res, id)
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "plan %s", id)
	}
	return nil
}

// preparePlan fills in a missing id and timestamp and encodes the JSON
// columns.
func preparePlan(plan *model.Plan) (allocJSON, metricsJSON []byte, err error) {
	if plan == nil {
		return nil, nil, eris.New("plan is nil")
	}
	if plan.Market == "" {
		return nil, nil, eris.New("plan market is required")
	}
	if !plan.Mode.Valid() {
		return nil, nil, eris.Errorf("invalid plan mode %q", plan.Mode)
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	if plan.Allocations == nil {
		plan.Allocations = model.AllocationMap{}
	}

	allocJSON, err = json.Marshal(plan.Allocations)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal allocations")
	}
	metricsJSON, err = json.Marshal(plan.Metrics)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal metrics")
	}
	return allocJSON, metricsJSON, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPlan(row scannable) (*model.Plan, error) {
	var p model.Plan
	var mode string
	var allocJSON, metricsJSON []byte

	err := row.Scan(&p.ID, &p.Name, &p.Market, &mode, &p.TotalBudget, &allocJSON, &metricsJSON, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Mode = model.AllocationMode(mode)

	if err := json.Unmarshal(allocJSON, &p.Allocations); err != nil {
		return nil, eris.Wrap(err, "unmarshal allocations")
	}
	if err := json.Unmarshal(metricsJSON, &p.Metrics); err != nil {
		return nil, eris.Wrap(err, "unmarshal metrics")
	}
	return &p, nil
}
