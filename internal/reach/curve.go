package reach

import (
	"math"

	"github.com/sells-group/campaign-planner/internal/model"
)

// DefaultCurveSamples is the number of points used when none is requested.
const DefaultCurveSamples = 20

// Curve samples deduplicated reach at equally spaced budgets from 0 to
// maxBudget inclusive, splitting each budget evenly across the enabled
// providers. Reach is carried forward as a running maximum so the series never
// decreases. The curve does not depend on any live allocation.
func Curve(m *model.Market, enabled []string, maxBudget float64, samples int) []model.CurvePoint {
	if samples <= 0 {
		samples = DefaultCurveSamples
	}
	if samples < 2 {
		samples = 2
	}
	if maxBudget < 0 || math.IsNaN(maxBudget) {
		maxBudget = 0
	}

	points := make([]model.CurvePoint, 0, samples)
	var best float64
	for i := 0; i < samples; i++ {
		budget := maxBudget * float64(i) / float64(samples-1)
		alloc := evenSplit(budget, enabled)
		r := DedupedReach(m, alloc)
		best = math.Max(best, r)
		points = append(points, model.CurvePoint{Budget: budget, Reach: best})
	}
	return points
}

func evenSplit(budget float64, ids []string) model.AllocationMap {
	alloc := make(model.AllocationMap, len(ids))
	if len(ids) == 0 {
		return alloc
	}
	share := budget / float64(len(ids))
	for _, id := range ids {
		alloc[id] += share
	}
	return alloc
}
