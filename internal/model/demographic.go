// Package model defines the shared types of the planning engine.
package model

import "strings"

// Built-in demographic fields resolved outside the Fields map.
const (
	FieldPopulation = "population"
	FieldHouseholds = "households"
)

// DemographicRecord is the reference demographic snapshot for one geographic
// unit (a postal region, district, or similar).
type DemographicRecord struct {
	Code       string             `json:"code" yaml:"code"`
	Population int64              `json:"population" yaml:"population"`
	Households int64              `json:"households" yaml:"households"`
	Fields     map[string]float64 `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Value returns the numeric value of a field. Field names are matched
// case-insensitively. Missing fields report false and a zero value.
func (r DemographicRecord) Value(field string) (float64, bool) {
	key := strings.ToLower(strings.TrimSpace(field))
	switch key {
	case FieldPopulation:
		return float64(r.Population), true
	case FieldHouseholds:
		return float64(r.Households), true
	}
	if v, ok := r.Fields[key]; ok {
		return v, true
	}
	// Fall back to an exact match for datasets with mixed-case headers.
	if v, ok := r.Fields[field]; ok {
		return v, true
	}
	return 0, false
}

// Dataset maps geo codes to their demographic records.
type Dataset map[string]DemographicRecord

// NormalizeCode canonicalizes a geo code for lookups: surrounding space is
// trimmed and letters are upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
