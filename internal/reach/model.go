// Package reach models per-provider audience reach under diminishing returns
// and combines providers into a deduplicated campaign total.
package reach

import (
	"math"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Impressions converts spend into impressions at the given CPM.
func Impressions(spend, cpm float64) float64 {
	if spend <= 0 || cpm <= 0 || math.IsNaN(spend) || math.IsInf(spend, 0) {
		return 0
	}
	return spend / cpm * 1000
}

// Modeled reports whether a provider has every reach-model parameter needed
// to produce a non-zero estimate in a market of the given universe.
func Modeled(p model.ProviderProfile, universe float64) bool {
	return p.CPM > 0 && p.Steepness > 0 && p.MaxReach(universe) > 0
}

// ProviderReach returns the expected unique reach of spend on one provider:
//
//	reach = maxReach * (1 - e^(-k * impressions / maxReach))
//
// Providers missing reach-model parameters reach nobody.
func ProviderReach(p model.ProviderProfile, universe, spend float64) float64 {
	return Estimate(p, universe, spend).Reach
}

// Frequency returns the average exposures per reached household for spend on
// one provider, 0 when nothing is reached.
func Frequency(p model.ProviderProfile, universe, spend float64) float64 {
	return Estimate(p, universe, spend).Frequency
}

// Estimate models the delivery of spend on one provider.
func Estimate(p model.ProviderProfile, universe, spend float64) model.ProviderMetrics {
	est := model.ProviderMetrics{ProviderID: p.ID, Spend: math.Max(0, spend)}
	if !Modeled(p, universe) {
		return est
	}
	est.Impressions = Impressions(spend, p.CPM)
	if est.Impressions == 0 {
		return est
	}
	maxReach := p.MaxReach(universe)
	est.Reach = maxReach * (1 - math.Exp(-p.Steepness*est.Impressions/maxReach))
	if est.Reach > 0 {
		est.Frequency = est.Impressions / est.Reach
	}
	return est
}
