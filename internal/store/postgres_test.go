package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/campaign-planner/internal/model"
)

var planColumns = []string{"id", "name", "market", "mode", "total_budget", "allocations", "metrics", "created_at"}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS plans`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO plans .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "Q3 launch", "us", "auto", 100000.0,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	plan := &model.Plan{
		Name:        "Q3 launch",
		Market:      "us",
		Mode:        model.ModeAuto,
		TotalBudget: 100_000,
		Allocations: model.AllocationMap{"ctv": 60_000, "social": 40_000},
	}
	require.NoError(t, s.SavePlan(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan_InvalidMode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.SavePlan(context.Background(), &model.Plan{Market: "us", Mode: "random"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plan mode")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPlan(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, market, mode, total_budget, allocations, metrics, created_at FROM plans WHERE id = \$1`).
		WithArgs("plan-1").
		WillReturnRows(pgxmock.NewRows(planColumns).AddRow(
			"plan-1", "Spring", "us", "equal", 5000.0,
			[]byte(`{"ctv":2500,"social":2500}`),
			[]byte(`{"budget":5000,"deduped_reach":1234}`),
			created,
		))

	p, err := s.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "Spring", p.Name)
	assert.Equal(t, model.ModeEqual, p.Mode)
	assert.InDelta(t, 2500, p.Allocations["ctv"], 1e-9)
	assert.InDelta(t, 1234, p.Metrics.DedupedReach, 1e-9)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPlan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM plans WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetPlan(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPlans_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE true AND market = \$1 AND mode = \$2 ORDER BY created_at DESC, id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("us", "auto", 10, 20).
		WillReturnRows(pgxmock.NewRows(planColumns).
			AddRow("a", "", "us", "auto", 10.0, []byte(`{}`), []byte(`{}`), created).
			AddRow("b", "", "us", "auto", 20.0, []byte(`{}`), []byte(`{}`), created))

	plans, err := s.ListPlans(context.Background(), PlanFilter{Market: "us", Mode: model.ModeAuto, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "a", plans[0].ID)
	assert.InDelta(t, 20, plans[1].TotalBudget, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPlans_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true ORDER BY created_at DESC, id ASC LIMIT \$1$`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(planColumns))

	plans, err := s.ListPlans(context.Background(), PlanFilter{})
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeletePlan(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM plans WHERE id = \$1`).
		WithArgs("plan-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM plans WHERE id = \$1`).
		WithArgs("plan-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeletePlan(context.Background(), "plan-1"))
	err := s.DeletePlan(context.Background(), "plan-1")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
