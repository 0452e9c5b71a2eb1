package planner

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/campaign-planner/internal/optimizer"
)

// DefaultCompareConcurrency bounds concurrent scenario evaluation.
const DefaultCompareConcurrency = 4

// Scenario is one named allocation request in a comparison.
type Scenario struct {
	Name string `json:"name"`
	AllocateRequest
}

// ScenarioResult pairs a scenario with its allocation.
type ScenarioResult struct {
	Name   string            `json:"name"`
	Result *optimizer.Result `json:"result"`
}

// Compare evaluates scenarios concurrently. Results keep the input order. The
// first failing scenario cancels the rest and its error is returned.
func (s *Service) Compare(ctx context.Context, scenarios []Scenario) ([]ScenarioResult, error) {
	if len(scenarios) == 0 {
		return nil, eris.Wrap(ErrInvalid, "at least one scenario is required")
	}

	results := make([]ScenarioResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultCompareConcurrency)

	for i, sc := range scenarios {
		g.Go(func() error {
			name := sc.Name
			if name == "" {
				name = string(sc.Mode)
			}
			res, err := s.Allocate(gctx, sc.AllocateRequest)
			if err != nil {
				return eris.Wrapf(err, "scenario %d (%s)", i, name)
			}
			results[i] = ScenarioResult{Name: name, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Debug("planner: scenarios compared", zap.Int("scenarios", len(scenarios)))
	return results, nil
}
