package model

// DiversityModel selects how geographic spread is scored for a market.
type DiversityModel string

const (
	// DiversityNumeric scores numeric postal codes by leading-digit prefixes.
	DiversityNumeric DiversityModel = "numeric"
	// DiversityAlpha scores alphabetic area-prefix codes.
	DiversityAlpha DiversityModel = "alpha"
)

// ProviderProfile is the reach-model configuration of one media provider.
type ProviderProfile struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Universe is the absolute reachable household count. When zero the
	// reachable universe is MaxReachFraction of the market universe.
	Universe         float64 `json:"universe,omitempty" yaml:"universe,omitempty"`
	MaxReachFraction float64 `json:"max_reach_fraction" yaml:"max_reach_fraction"`

	CPM          float64 `json:"cpm" yaml:"cpm"`
	MinBudget    float64 `json:"min_budget" yaml:"min_budget"`
	MaxFrequency float64 `json:"max_frequency" yaml:"max_frequency"`
	Steepness    float64 `json:"steepness" yaml:"steepness"`

	// Overlaps holds 0-1 audience-overlap coefficients against other providers.
	Overlaps map[string]float64 `json:"overlaps,omitempty" yaml:"overlaps,omitempty"`
}

// MaxReach returns the reach asymptote of the provider in a market.
func (p ProviderProfile) MaxReach(marketUniverse float64) float64 {
	if p.Universe > 0 {
		return p.Universe
	}
	return p.MaxReachFraction * marketUniverse
}

// Market groups the provider catalog and audience universe of one country or
// region.
type Market struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Universe  float64           `json:"universe" yaml:"universe"`
	Diversity DiversityModel    `json:"diversity" yaml:"diversity"`
	Providers []ProviderProfile `json:"providers" yaml:"providers"`
}

// Provider looks up a provider by id.
func (m *Market) Provider(id string) (ProviderProfile, bool) {
	for _, p := range m.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderProfile{}, false
}

// ProviderIDs returns the ids of all providers in catalog order.
func (m *Market) ProviderIDs() []string {
	ids := make([]string, 0, len(m.Providers))
	for _, p := range m.Providers {
		ids = append(ids, p.ID)
	}
	return ids
}

// AllocationMap maps provider id to planned spend.
type AllocationMap map[string]float64

// Total returns the summed spend of the allocation.
func (a AllocationMap) Total() float64 {
	var sum float64
	for _, v := range a {
		sum += v
	}
	return sum
}

// Clone returns an independent copy of the allocation.
func (a AllocationMap) Clone() AllocationMap {
	out := make(AllocationMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ProviderMetrics is the modeled delivery of one funded provider.
type ProviderMetrics struct {
	ProviderID  string  `json:"provider_id"`
	Spend       float64 `json:"spend"`
	Impressions float64 `json:"impressions"`
	Reach       float64 `json:"reach"`
	Frequency   float64 `json:"frequency"`
}

// CombinedMetrics is the deduplicated delivery of a whole allocation.
type CombinedMetrics struct {
	Budget           float64           `json:"budget"`
	TotalSpend       float64           `json:"total_spend"`
	TotalImpressions float64           `json:"total_impressions"`
	GrossReach       float64           `json:"gross_reach"`
	OverlapDeduction float64           `json:"overlap_deduction"`
	DedupedReach     float64           `json:"deduped_reach"`
	Frequency        float64           `json:"frequency"`
	BlendedCPM       float64           `json:"blended_cpm"`
	GRPs             float64           `json:"grps"`
	ReachPct         float64           `json:"reach_pct"`
	Providers        []ProviderMetrics `json:"providers"`
}

// CurvePoint is one sample of a reach-vs-spend curve.
type CurvePoint struct {
	Budget float64 `json:"budget"`
	Reach  float64 `json:"reach"`
}
