package planner

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/store"
)

// SavePlan allocates a request and persists the outcome as a named plan.
func (s *Service) SavePlan(ctx context.Context, name string, req AllocateRequest) (*model.Plan, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	res, err := s.Allocate(ctx, req)
	if err != nil {
		return nil, err
	}
	m, err := s.Market(req.Market)
	if err != nil {
		return nil, err
	}

	plan := &model.Plan{
		Name:        strings.TrimSpace(name),
		Market:      m.ID,
		Mode:        res.Mode,
		TotalBudget: res.Allocations.Total(),
		Allocations: res.Allocations,
		Metrics:     res.Metrics,
	}
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, eris.Wrap(err, "planner: save plan")
	}
	return plan, nil
}

// GetPlan loads a saved plan.
func (s *Service) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetPlan(ctx, id)
}

// ListPlans lists saved plans.
func (s *Service) ListPlans(ctx context.Context, filter store.PlanFilter) ([]model.Plan, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListPlans(ctx, filter)
}

// DeletePlan removes a saved plan.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeletePlan(ctx, id)
}
