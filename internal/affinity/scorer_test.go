package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/campaign-planner/internal/model"
)

func rec(code string, fields map[string]float64) model.DemographicRecord {
	return model.DemographicRecord{Code: code, Population: 1000, Households: 400, Fields: fields}
}

func TestCriterionScore(t *testing.T) {
	c := model.Criterion{Field: "x", Weight: 100, Min: 20, Target: 40}

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"at target", 40, 100},
		{"above target", 55, 100},
		{"at min", 20, 50},
		{"mid band", 30, 75},
		{"below min", 10, 25},
		{"zero", 0, 0},
		{"negative clamps", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CriterionScore(tt.value, c), 0.001)
		})
	}
}

func TestCriterionScore_ZeroMin(t *testing.T) {
	c := model.Criterion{Field: "x", Weight: 1, Min: 0, Target: 10}
	assert.InDelta(t, 50.0, CriterionScore(0, c), 0.001)
	assert.InDelta(t, 75.0, CriterionScore(5, c), 0.001)

	// Below a zero minimum the score is 0 rather than a division by zero.
	assert.InDelta(t, 0.0, CriterionScore(-1, c), 0.001)
}

func TestScoreRecord_Scenario(t *testing.T) {
	criteria := []model.Criterion{{Field: "x", Weight: 100, Min: 20, Target: 40}}

	assert.Equal(t, 100, ScoreRecord(rec("A", map[string]float64{"x": 40}), criteria))
	assert.Equal(t, 50, ScoreRecord(rec("A", map[string]float64{"x": 20}), criteria))
	assert.Equal(t, 0, ScoreRecord(rec("A", map[string]float64{"x": 0}), criteria))
}

func TestScoreRecord_WeightedAverage(t *testing.T) {
	criteria := []model.Criterion{
		{Field: "a", Weight: 1, Min: 0, Target: 10},
		{Field: "b", Weight: 3, Min: 10, Target: 20},
	}
	// a=10 -> 100, b=10 -> 50; (100*1 + 50*3) / 4 = 62.5 -> 63
	got := ScoreRecord(rec("A", map[string]float64{"a": 10, "b": 10}), criteria)
	assert.Equal(t, 63, got)
}

func TestScoreRecord_MissingFieldIsZero(t *testing.T) {
	criteria := []model.Criterion{{Field: "income_100k_plus", Weight: 1, Min: 20, Target: 40}}
	assert.Equal(t, 0, ScoreRecord(rec("A", nil), criteria))
}

func TestScoreRecord_ZeroWeight(t *testing.T) {
	criteria := []model.Criterion{{Field: "x", Weight: 0, Min: 0, Target: 10}}
	assert.Equal(t, 0, ScoreRecord(rec("A", map[string]float64{"x": 50}), criteria))
	assert.Equal(t, 0, ScoreRecord(rec("A", map[string]float64{"x": 50}), nil))
}

func TestScoreRecord_BuiltinFields(t *testing.T) {
	criteria := []model.Criterion{{Field: "Households", Weight: 1, Min: 100, Target: 400}}
	assert.Equal(t, 100, ScoreRecord(rec("A", nil), criteria))
}

func TestScoreUnit_AffinityTable(t *testing.T) {
	aud := model.AudienceDefinition{
		Kind:     model.AudienceAffinityTable,
		Affinity: map[string]float64{"SW1": 72.4, "E1": 150},
	}
	assert.Equal(t, 72, ScoreUnit(rec("SW1", nil), aud))
	assert.Equal(t, 100, ScoreUnit(rec("E1", nil), aud))
	assert.Equal(t, 0, ScoreUnit(rec("N1", nil), aud))
	assert.Equal(t, 72, ScoreUnit(rec(" sw1 ", nil), aud))
}

func TestScoreUnits_SortedWithTieBreak(t *testing.T) {
	data := model.Dataset{
		"30301": rec("30301", map[string]float64{"x": 40}),
		"10001": rec("10001", map[string]float64{"x": 40}),
		"60601": rec("60601", map[string]float64{"x": 30}),
		"94105": rec("94105", map[string]float64{"x": 0}),
		"02108": rec("02108", map[string]float64{"x": 30}),
	}
	aud := model.AudienceDefinition{
		Kind:     model.AudienceCriteria,
		Criteria: []model.Criterion{{Field: "x", Weight: 1, Min: 20, Target: 40}},
	}

	units := ScoreUnits(data, aud)
	require.Len(t, units, 5)

	var codes []string
	for _, u := range units {
		codes = append(codes, u.Code)
		assert.GreaterOrEqual(t, u.Score, 0)
		assert.LessOrEqual(t, u.Score, 100)
	}
	assert.Equal(t, []string{"10001", "30301", "02108", "60601", "94105"}, codes)
}

func TestScoreUnits_Deterministic(t *testing.T) {
	data := model.Dataset{}
	for _, code := range []string{"A1", "B2", "C3", "D4", "E5", "F6"} {
		data[code] = rec(code, map[string]float64{"x": 25})
	}
	aud := model.AudienceDefinition{Criteria: []model.Criterion{{Field: "x", Weight: 1, Min: 20, Target: 40}}}

	first := ScoreUnits(data, aud)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ScoreUnits(data, aud))
	}
}

func TestScoreUnits_EmptyDataset(t *testing.T) {
	units := ScoreUnits(nil, model.AudienceDefinition{})
	assert.Empty(t, units)
}
