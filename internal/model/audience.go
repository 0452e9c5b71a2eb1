package model

// AudienceKind discriminates the audience definition variants.
type AudienceKind string

const (
	// AudienceCriteria is scored against weighted demographic criteria.
	AudienceCriteria AudienceKind = "criteria"
	// AudienceAffinityTable carries precomputed per-code scores from an upload.
	AudienceAffinityTable AudienceKind = "affinity_table"
	// AudienceNaturalLanguage is a criteria set matched from a free-text query.
	AudienceNaturalLanguage AudienceKind = "natural_language"
)

// Criterion is one weighted demographic condition of an audience.
type Criterion struct {
	Field  string  `json:"field" yaml:"field"`
	Weight float64 `json:"weight" yaml:"weight"`
	Min    float64 `json:"min" yaml:"min"`
	Target float64 `json:"target" yaml:"target"`
}

// AudienceDefinition describes who a campaign is aimed at. Kind selects which
// of the variant fields is meaningful.
type AudienceDefinition struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Kind     AudienceKind `json:"kind" yaml:"kind"`
	Criteria []Criterion  `json:"criteria,omitempty" yaml:"criteria,omitempty"`

	// Affinity holds 0-100 scores keyed by geo code (affinity_table only).
	Affinity map[string]float64 `json:"affinity,omitempty" yaml:"affinity,omitempty"`

	// Query and MatchedTerms describe a natural_language audience.
	Query        string   `json:"query,omitempty" yaml:"query,omitempty"`
	MatchedTerms []string `json:"matched_terms,omitempty" yaml:"matched_terms,omitempty"`
}

// UsesCriteria reports whether the audience is scored with weighted criteria.
func (a AudienceDefinition) UsesCriteria() bool {
	switch a.Kind {
	case AudienceCriteria, AudienceNaturalLanguage, "":
		return true
	default:
		return false
	}
}

// ScoredUnit is a geographic unit with its affinity score for one audience.
type ScoredUnit struct {
	Code   string            `json:"code"`
	Score  int               `json:"score"`
	Record DemographicRecord `json:"record"`
}

// GroupStats summarizes one group of a recommendation.
type GroupStats struct {
	Count      int     `json:"count"`
	AvgScore   float64 `json:"avg_score"`
	MinScore   int     `json:"min_score"`
	MaxScore   int     `json:"max_score"`
	Population int64   `json:"population"`
	Households int64   `json:"households"`
	Diversity  float64 `json:"diversity"`
}

// Stats aggregates a RecommendationSet.
type Stats struct {
	TotalUnits     int        `json:"total_units"`
	QualifiedUnits int        `json:"qualified_units"`
	SelectedUnits  int        `json:"selected_units"`
	NotRecommended int        `json:"not_recommended"`
	Exposed        GroupStats `json:"exposed"`
	Holdout        GroupStats `json:"holdout"`
}

// RecommendationSet is the treatment/control split for a campaign.
type RecommendationSet struct {
	Exposed        []ScoredUnit `json:"exposed"`
	Holdout        []ScoredUnit `json:"holdout"`
	NotRecommended []ScoredUnit `json:"not_recommended"`
	Stats          Stats        `json:"stats"`
}
