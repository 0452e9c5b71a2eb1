package geo

import (
	"math"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Params controls how scored units are split into exposed and holdout groups.
type Params struct {
	MinScore     int                  `json:"min_score"`
	MaxUnits     int                  `json:"max_units"`     // 0 = no cap
	ExposedRatio float64              `json:"exposed_ratio"` // clamped to 0-1
	Diversity    model.DiversityModel `json:"diversity"`     // empty = detect from codes
}

// Allocate filters units by minimum score, caps the selection keeping the
// highest scores first, and splits it into an exposed group (top share by
// score) and a holdout group (the next units by score). Units that are not
// selected are returned as not recommended. The input must be sorted by score
// descending; Allocate never fails and an empty selection yields zeroed stats.
func Allocate(units []model.ScoredUnit, p Params) model.RecommendationSet {
	ratio := p.ExposedRatio
	if math.IsNaN(ratio) {
		ratio = 0
	}
	ratio = math.Max(0, math.Min(1, ratio))

	div := p.Diversity
	if div == "" {
		codes := make([]string, len(units))
		for i, u := range units {
			codes[i] = u.Code
		}
		div = DetectModel(codes)
	}

	qualified := make([]model.ScoredUnit, 0, len(units))
	rest := make([]model.ScoredUnit, 0)
	for _, u := range units {
		if u.Score >= p.MinScore {
			qualified = append(qualified, u)
		} else {
			rest = append(rest, u)
		}
	}

	selected := qualified
	if p.MaxUnits > 0 && len(selected) > p.MaxUnits {
		selected = qualified[:p.MaxUnits]
		overflow := append([]model.ScoredUnit(nil), qualified[p.MaxUnits:]...)
		rest = append(overflow, rest...)
	}

	exposedCount := int(math.Round(float64(len(selected)) * ratio))
	exposed := append([]model.ScoredUnit{}, selected[:exposedCount]...)
	holdout := append([]model.ScoredUnit{}, selected[exposedCount:]...)

	return model.RecommendationSet{
		Exposed:        exposed,
		Holdout:        holdout,
		NotRecommended: rest,
		Stats: model.Stats{
			TotalUnits:     len(units),
			QualifiedUnits: len(qualified),
			SelectedUnits:  len(selected),
			NotRecommended: len(rest),
			Exposed:        groupStats(exposed, div),
			Holdout:        groupStats(holdout, div),
		},
	}
}

func groupStats(units []model.ScoredUnit, div model.DiversityModel) model.GroupStats {
	if len(units) == 0 {
		return model.GroupStats{}
	}
	gs := model.GroupStats{
		Count:    len(units),
		MinScore: units[0].Score,
		MaxScore: units[0].Score,
	}
	var sum int
	for _, u := range units {
		sum += u.Score
		if u.Score < gs.MinScore {
			gs.MinScore = u.Score
		}
		if u.Score > gs.MaxScore {
			gs.MaxScore = u.Score
		}
		gs.Population += u.Record.Population
		gs.Households += u.Record.Households
	}
	gs.AvgScore = math.Round(float64(sum)/float64(len(units))*10) / 10
	gs.Diversity = math.Round(Diversity(units, div)*10) / 10
	return gs
}
