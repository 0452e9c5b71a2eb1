package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemographicRecord_Value(t *testing.T) {
	rec := DemographicRecord{
		Code:       "10001",
		Population: 21000,
		Households: 9000,
		Fields:     map[string]float64{"median_income": 72000, "Pct_Kids": 31},
	}

	tests := []struct {
		field  string
		want   float64
		wantOK bool
	}{
		{"population", 21000, true},
		{" Households ", 9000, true},
		{"MEDIAN_INCOME", 72000, true},
		{"Pct_Kids", 31, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := rec.Value(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SW1A", NormalizeCode("  sw1a "))
	assert.Equal(t, "02134", NormalizeCode("02134"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestAudienceDefinition_UsesCriteria(t *testing.T) {
	assert.True(t, AudienceDefinition{Kind: AudienceCriteria}.UsesCriteria())
	assert.True(t, AudienceDefinition{Kind: AudienceNaturalLanguage}.UsesCriteria())
	assert.True(t, AudienceDefinition{}.UsesCriteria())
	assert.False(t, AudienceDefinition{Kind: AudienceAffinityTable}.UsesCriteria())
}

func TestAllocationMode_Valid(t *testing.T) {
	for _, m := range []AllocationMode{ModeEqual, ModeManual, ModeAuto} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, AllocationMode("").Valid())
	assert.False(t, AllocationMode("greedy").Valid())
}

func TestProviderProfile_MaxReach(t *testing.T) {
	p := ProviderProfile{MaxReachFraction: 0.6}
	assert.InDelta(t, 600000, p.MaxReach(1_000_000), 1e-9)

	p.Universe = 250000
	assert.InDelta(t, 250000, p.MaxReach(1_000_000), 0)
}

func TestMarket_Provider(t *testing.T) {
	m := &Market{ID: "us", Providers: []ProviderProfile{{ID: "ctv"}, {ID: "search"}}}

	p, ok := m.Provider("search")
	assert.True(t, ok)
	assert.Equal(t, "search", p.ID)

	_, ok = m.Provider("radio")
	assert.False(t, ok)

	assert.Equal(t, []string{"ctv", "search"}, m.ProviderIDs())
}

func TestAllocationMap_TotalAndClone(t *testing.T) {
	a := AllocationMap{"ctv": 600, "search": 400}
	assert.InDelta(t, 1000, a.Total(), 0)
	assert.InDelta(t, 0, AllocationMap(nil).Total(), 0)

	c := a.Clone()
	c["ctv"] = 1
	assert.InDelta(t, 600, a["ctv"], 0)
}
