package reach

import (
	"math"
	"sort"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Contribution is the individual reach of one funded provider.
type Contribution struct {
	ProviderID string
	Reach      float64
}

// OverlapFunc returns the 0-1 audience overlap coefficient of two providers.
type OverlapFunc func(a, b string) float64

// Dedup is the result of pairwise deduplication.
type Dedup struct {
	Gross     float64
	Deduction float64
	Reach     float64
}

// Deduplicate combines individual reaches with a pairwise inclusion-exclusion
// approximation: every unordered pair removes min(reach_a, reach_b) * overlap.
// Three-way and higher intersections are not modeled, so the estimate drifts
// low as more overlapping providers are funded; the result is floored at the
// largest single reach. Pairs are visited in the given order.
func Deduplicate(contribs []Contribution, overlap OverlapFunc) Dedup {
	var d Dedup
	var maxSingle float64
	for i, a := range contribs {
		d.Gross += a.Reach
		maxSingle = math.Max(maxSingle, a.Reach)
		if overlap == nil {
			continue
		}
		for _, b := range contribs[i+1:] {
			coef := clampUnit(overlap(a.ProviderID, b.ProviderID))
			d.Deduction += math.Min(a.Reach, b.Reach) * coef
		}
	}
	d.Reach = math.Max(d.Gross-d.Deduction, maxSingle)
	return d
}

// Overlap returns the overlap coefficient of two providers in a market,
// looked up in either direction. Unknown pairs do not overlap.
func Overlap(m *model.Market, a, b string) float64 {
	if m == nil {
		return 0
	}
	return overlapIn(index(m), a, b)
}

func overlapIn(providers map[string]model.ProviderProfile, a, b string) float64 {
	if a == b {
		return 0
	}
	if v, ok := providers[a].Overlaps[b]; ok {
		return clampUnit(v)
	}
	if v, ok := providers[b].Overlaps[a]; ok {
		return clampUnit(v)
	}
	return 0
}

func index(m *model.Market) map[string]model.ProviderProfile {
	out := make(map[string]model.ProviderProfile, len(m.Providers))
	for _, p := range m.Providers {
		if _, dup := out[p.ID]; !dup {
			out[p.ID] = p
		}
	}
	return out
}

// Combine models every funded provider of an allocation and returns the
// deduplicated campaign metrics. Unknown providers and providers without
// reach-model parameters are skipped.
func Combine(m *model.Market, alloc model.AllocationMap) model.CombinedMetrics {
	out := model.CombinedMetrics{Budget: alloc.Total()}
	if m == nil {
		return out
	}

	ids := make([]string, 0, len(alloc))
	for id, spend := range alloc {
		if spend > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	providers := index(m)
	contribs := make([]Contribution, 0, len(ids))
	for _, id := range ids {
		p, ok := providers[id]
		if !ok || !Modeled(p, m.Universe) {
			continue
		}
		est := Estimate(p, m.Universe, alloc[id])
		out.Providers = append(out.Providers, est)
		out.TotalSpend += est.Spend
		out.TotalImpressions += est.Impressions
		contribs = append(contribs, Contribution{ProviderID: id, Reach: est.Reach})
	}

	d := Deduplicate(contribs, func(a, b string) float64 { return overlapIn(providers, a, b) })
	out.GrossReach = d.Gross
	out.OverlapDeduction = d.Deduction
	out.DedupedReach = d.Reach
	if m.Universe > 0 {
		out.DedupedReach = math.Min(out.DedupedReach, m.Universe)
		out.GRPs = out.TotalImpressions / m.Universe * 100
		out.ReachPct = out.DedupedReach / m.Universe * 100
	}
	if out.DedupedReach > 0 {
		out.Frequency = out.TotalImpressions / out.DedupedReach
	}
	if out.TotalImpressions > 0 {
		out.BlendedCPM = out.TotalSpend / out.TotalImpressions * 1000
	}
	return out
}

// DedupedReach returns only the deduplicated reach of an allocation.
func DedupedReach(m *model.Market, alloc model.AllocationMap) float64 {
	return Combine(m, alloc).DedupedReach
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
