package affinity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Dimension is a selectable demographic dimension used to build audiences
// interactively or from a free-text query.
type Dimension struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Field    string   `json:"field" yaml:"field"`
	Weight   float64  `json:"weight" yaml:"weight"`
	Min      float64  `json:"min" yaml:"min"`
	Target   float64  `json:"target" yaml:"target"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

func (d Dimension) criterion() model.Criterion {
	w := d.Weight
	if w <= 0 {
		w = 1
	}
	return model.Criterion{Field: d.Field, Weight: w, Min: d.Min, Target: d.Target}
}

// FromDimensions builds a criteria audience from the selected dimension ids.
// Selection order is preserved; duplicates are ignored.
func FromDimensions(id, name string, dims []Dimension, selected []string) (model.AudienceDefinition, error) {
	byID := make(map[string]Dimension, len(dims))
	for _, d := range dims {
		byID[d.ID] = d
	}

	aud := model.AudienceDefinition{ID: id, Name: name, Kind: model.AudienceCriteria}
	var unknown []string
	used := make(map[string]bool)
	for _, sel := range selected {
		if used[sel] {
			continue
		}
		used[sel] = true
		d, ok := byID[sel]
		if !ok {
			unknown = append(unknown, sel)
			continue
		}
		aud.Criteria = append(aud.Criteria, d.criterion())
	}
	if len(unknown) > 0 {
		return aud, eris.Errorf("affinity: unknown dimensions: %s", strings.Join(unknown, ", "))
	}
	return aud, nil
}

// MatchQuery turns a free-text audience description into a natural_language
// audience by matching dimension keywords. A query that matches nothing yields
// an audience without criteria, which scores every unit 0.
func MatchQuery(query string, dims []Dimension) model.AudienceDefinition {
	aud := model.AudienceDefinition{
		ID:    slug(query),
		Name:  strings.TrimSpace(query),
		Kind:  model.AudienceNaturalLanguage,
		Query: query,
	}

	terms := make(map[string]bool)
	for _, d := range dims {
		keywords := d.Keywords
		if len(keywords) == 0 && d.Label != "" {
			keywords = []string{d.Label}
		}
		hits := matchKeywords(keywords, query)
		if len(hits) == 0 {
			continue
		}
		aud.Criteria = append(aud.Criteria, d.criterion())
		for _, h := range hits {
			terms[strings.ToLower(h)] = true
		}
	}

	for t := range terms {
		aud.MatchedTerms = append(aud.MatchedTerms, t)
	}
	sort.Strings(aud.MatchedTerms)
	return aud
}

// Validate checks that an audience definition is usable for its kind.
func Validate(a model.AudienceDefinition) error {
	var errs []string

	switch a.Kind {
	case model.AudienceCriteria, model.AudienceNaturalLanguage, "":
		if a.Kind == model.AudienceNaturalLanguage && strings.TrimSpace(a.Query) == "" {
			errs = append(errs, "query is required")
		}
		if len(a.Criteria) == 0 {
			errs = append(errs, "at least one criterion is required")
		}
		for i, c := range a.Criteria {
			if strings.TrimSpace(c.Field) == "" {
				errs = append(errs, fmt.Sprintf("criterion %d: field is required", i))
			}
			if c.Weight <= 0 {
				errs = append(errs, fmt.Sprintf("criterion %d: weight must be > 0", i))
			}
			if c.Target < c.Min {
				errs = append(errs, fmt.Sprintf("criterion %d: target must be >= min", i))
			}
		}
	case model.AudienceAffinityTable:
		if len(a.Affinity) == 0 {
			errs = append(errs, "affinity table is empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown audience kind %q", a.Kind))
	}

	if len(errs) > 0 {
		return eris.Errorf("affinity: invalid audience %q: %s", a.ID, strings.Join(errs, "; "))
	}
	return nil
}

// matchKeywords returns all keywords that appear (case-insensitive) in the given texts.
func matchKeywords(keywords []string, texts ...string) []string {
	var combined string
	for _, t := range texts {
		if t != "" {
			combined += " " + strings.ToLower(t)
		}
	}
	if combined == "" {
		return nil
	}

	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
