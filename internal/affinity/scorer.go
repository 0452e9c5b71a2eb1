// Package affinity scores geographic units against audience definitions.
package affinity

import (
	"math"
	"sort"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// CriterionScore returns the 0-100 fit of a single value against a criterion.
// Piecewise linear: at or above target scores 100, the [min, target) band maps
// onto [50, 100), and below min falls linearly from 50 towards 0.
func CriterionScore(value float64, c model.Criterion) float64 {
	if value >= c.Target {
		return MaxScore
	}
	if value >= c.Min {
		span := c.Target - c.Min
		if span <= 0 {
			return MaxScore
		}
		return clamp(50 + 50*(value-c.Min)/span)
	}
	if c.Min == 0 {
		return 0
	}
	return clamp(50 * (value / c.Min))
}

// ScoreRecord returns the rounded weight-normalized score of a record. Missing
// fields count as zero. Non-positive weights are ignored.
func ScoreRecord(rec model.DemographicRecord, criteria []model.Criterion) int {
	var weighted, totalWeight float64
	for _, c := range criteria {
		if c.Weight <= 0 || math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			continue
		}
		v, _ := rec.Value(c.Field)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		weighted += CriterionScore(v, c) * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(clamp(weighted / totalWeight)))
}

// ScoreUnit scores one record for an audience, dispatching on its kind.
func ScoreUnit(rec model.DemographicRecord, audience model.AudienceDefinition) int {
	switch audience.Kind {
	case model.AudienceAffinityTable:
		v, ok := audience.Affinity[rec.Code]
		if !ok {
			v, ok = audience.Affinity[model.NormalizeCode(rec.Code)]
		}
		if !ok || math.IsNaN(v) {
			return 0
		}
		return int(math.Round(clamp(v)))
	default:
		return ScoreRecord(rec, audience.Criteria)
	}
}

// ScoreUnits scores every record in the dataset and returns the units sorted
// by score descending, ties broken by ascending geo code.
func ScoreUnits(data model.Dataset, audience model.AudienceDefinition) []model.ScoredUnit {
	units := make([]model.ScoredUnit, 0, len(data))
	for code, rec := range data {
		if rec.Code == "" {
			rec.Code = code
		}
		units = append(units, model.ScoredUnit{
			Code:   rec.Code,
			Score:  ScoreUnit(rec, audience),
			Record: rec,
		})
	}
	SortUnits(units)
	return units
}

// SortUnits orders units by score descending, then geo code ascending.
func SortUnits(units []model.ScoredUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Score != units[j].Score {
			return units[i].Score > units[j].Score
		}
		return units[i].Code < units[j].Code
	})
}

func clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}
