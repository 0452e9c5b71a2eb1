// Package optimizer splits a campaign budget across media providers.
package optimizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/reach"
)

const (
	epsilon       = 1e-9
	gainTolerance = 1e-6
)

// DefaultConfig returns the tuning used when no optimizer section is configured.
func DefaultConfig() config.OptimizerConfig {
	return config.OptimizerConfig{
		SeedFraction:      0.05,
		SeedCeiling:       5000,
		CapFraction:       0.25,
		IncrementFraction: 0.01,
		PenaltyFactor:     0.3,
	}
}

// ValidateConfig checks that the optimizer configuration is usable.
func ValidateConfig(cfg config.OptimizerConfig) error {
	var errs []string
	if cfg.SeedFraction < 0 || cfg.SeedFraction > 1 {
		errs = append(errs, fmt.Sprintf("seed_fraction %.3f out of range [0,1]", cfg.SeedFraction))
	}
	if cfg.SeedCeiling < 0 {
		errs = append(errs, "seed_ceiling must be >= 0")
	}
	if cfg.CapFraction <= 0 || cfg.CapFraction > 1 {
		errs = append(errs, fmt.Sprintf("cap_fraction %.3f out of range (0,1]", cfg.CapFraction))
	}
	if cfg.Increment < 0 {
		errs = append(errs, "increment must be >= 0")
	}
	if cfg.Increment == 0 && (cfg.IncrementFraction <= 0 || cfg.IncrementFraction > 1) {
		errs = append(errs, "increment_fraction must be in (0,1] when increment is unset")
	}
	if cfg.PenaltyFactor < 0 || cfg.PenaltyFactor > 1 {
		errs = append(errs, fmt.Sprintf("penalty_factor %.3f out of range [0,1]", cfg.PenaltyFactor))
	}
	if len(errs) > 0 {
		return eris.Errorf("optimizer: invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Result is the outcome of an allocation run.
type Result struct {
	Mode        model.AllocationMode  `json:"mode"`
	Allocations model.AllocationMap   `json:"allocations"`
	Metrics     model.CombinedMetrics `json:"metrics"`
	Iterations  int                   `json:"iterations"`
	Increment   float64               `json:"increment,omitempty"`
	Cap         float64               `json:"cap,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// EqualSplit gives each provider floor(total/n) and the remainder to the first.
func EqualSplit(total float64, ids []string) model.AllocationMap {
	ids = dedupe(ids)
	alloc := make(model.AllocationMap, len(ids))
	if len(ids) == 0 || !(total > 0) || math.IsInf(total, 0) {
		return alloc
	}

	t := decimal.NewFromFloat(total)
	n := decimal.NewFromInt(int64(len(ids)))
	each := t.Div(n).Floor()
	rest := t.Sub(each.Mul(n))
	for _, id := range ids {
		alloc[id] = each.InexactFloat64()
	}
	alloc[ids[0]] = each.Add(rest).InexactFloat64()
	return alloc
}

// Manual copies caller allocations, clamping negative or non-finite amounts to 0.
func Manual(in model.AllocationMap) model.AllocationMap {
	out := make(model.AllocationMap, len(in))
	for id, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		out[id] = v
	}
	return out
}

// Optimize greedily assigns total across the enabled providers of m to
// maximize deduplicated reach. Every provider is seeded first, then spend is
// added one increment at a time to the provider with the largest penalized
// marginal gain. The result is a heuristic and not guaranteed optimal.
func Optimize(m *model.Market, enabled []string, total float64, cfg config.OptimizerConfig) Result {
	res := Result{Mode: model.ModeAuto, Allocations: model.AllocationMap{}}

	var warnings []string
	providers := make(map[string]model.ProviderProfile)
	var ids []string
	for _, id := range dedupe(enabled) {
		p, ok := lookup(m, id)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("provider %q not found in market", id))
			continue
		}
		providers[id] = p
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 || !(total > 0) || math.IsInf(total, 0) {
		res.Warnings = warnings
		res.Metrics = reach.Combine(m, res.Allocations)
		return res
	}

	n := float64(len(ids))
	limit := math.Max(cfg.CapFraction*total, total/n)
	inc := cfg.Increment
	if inc <= 0 {
		inc = total * cfg.IncrementFraction
	}
	inc = math.Min(math.Max(inc, 1), total)

	seed := math.Min(cfg.SeedFraction*total, cfg.SeedCeiling)
	seed = math.Max(seed, 0)
	if seed*n > total {
		seed = total / n
	}
	seed = math.Min(seed, limit)

	alloc := make(model.AllocationMap, len(ids))
	for _, id := range ids {
		alloc[id] = seed
	}
	remaining := total - seed*n

	universe := marketUniverse(m)
	maxIter := int(total/inc) + len(ids)
	iterations := 0
	for iterations < maxIter && remaining+epsilon >= inc {
		base := reach.DedupedReach(m, alloc)
		best, bestGain := "", 0.0
		for _, id := range ids {
			if alloc[id]+inc > limit+epsilon {
				continue
			}
			trial := alloc.Clone()
			trial[id] += inc
			gain := reach.DedupedReach(m, trial) - base

			p := providers[id]
			if p.MaxFrequency > 0 {
				if f := reach.Frequency(p, universe, trial[id]); f > p.MaxFrequency {
					gain *= (p.MaxFrequency / f) * cfg.PenaltyFactor
				}
			}
			if gain > bestGain+gainTolerance {
				best, bestGain = id, gain
			}
		}
		if best == "" {
			break
		}
		alloc[best] += inc
		remaining -= inc
		iterations++
	}

	remaining = spread(alloc, ids, remaining, limit)
	alloc = settle(alloc, ids, total)

	for _, id := range ids {
		p := providers[id]
		if !reach.Modeled(p, universe) {
			warnings = append(warnings, fmt.Sprintf("provider %q has no reach model", id))
			continue
		}
		if p.MinBudget > 0 && alloc[id] > 0 && alloc[id] < p.MinBudget {
			warnings = append(warnings, fmt.Sprintf("provider %q funded below minimum budget %.0f", id, p.MinBudget))
		}
	}

	res.Allocations = alloc
	res.Metrics = reach.Combine(m, alloc)
	res.Iterations = iterations
	res.Increment = inc
	res.Cap = limit
	res.Warnings = warnings

	zap.L().Debug("optimizer: allocation complete",
		zap.Float64("total", total),
		zap.Int("providers", len(ids)),
		zap.Int("iterations", iterations),
		zap.Float64("increment", inc),
		zap.Float64("unspread", remaining),
		zap.Float64("deduped_reach", res.Metrics.DedupedReach),
	)

	return res
}

// spread distributes remaining evenly over providers with cap headroom and
// returns whatever could not be placed.
func spread(alloc model.AllocationMap, ids []string, remaining, limit float64) float64 {
	for remaining > epsilon {
		var open []string
		for _, id := range ids {
			if limit-alloc[id] > epsilon {
				open = append(open, id)
			}
		}
		if len(open) == 0 {
			break
		}
		share := remaining / float64(len(open))
		for _, id := range open {
			add := math.Min(share, limit-alloc[id])
			alloc[id] += add
			remaining -= add
		}
	}
	return remaining
}

// settle floors every allocation to whole units and gives the dust to the
// largest allocation (ties go to the lower id) so the sum equals total.
func settle(alloc model.AllocationMap, ids []string, total float64) model.AllocationMap {
	out := make(model.AllocationMap, len(ids))
	sum := decimal.Zero
	largest := ""
	for _, id := range ids {
		v := decimal.NewFromFloat(alloc[id]).Floor()
		if v.IsNegative() {
			v = decimal.Zero
		}
		out[id] = v.InexactFloat64()
		sum = sum.Add(v)
		if largest == "" || out[id] > out[largest] {
			largest = id
		}
	}
	dust := decimal.NewFromFloat(total).Sub(sum)
	if !dust.IsZero() && largest != "" {
		out[largest] = decimal.NewFromFloat(out[largest]).Add(dust).InexactFloat64()
	}
	return out
}

func lookup(m *model.Market, id string) (model.ProviderProfile, bool) {
	if m == nil {
		return model.ProviderProfile{}, false
	}
	return m.Provider(id)
}

func marketUniverse(m *model.Market) float64 {
	if m == nil {
		return 0
	}
	return m.Universe
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
