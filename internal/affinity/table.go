package affinity

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-planner/internal/model"
)

// ErrNoValidRows is returned when an uploaded table has no usable rows.
var ErrNoValidRows = eris.New("affinity: no valid rows")

// TableOptions selects the columns of an uploaded affinity table.
type TableOptions struct {
	// HasHeader marks the first row as a header. CodeColumn and ValueColumn
	// are then matched against it case-insensitively.
	HasHeader   bool
	CodeColumn  string
	ValueColumn string
}

// RowIssue records why an uploaded row was skipped. Row is 1-based and counts
// the header.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Table is a min-max normalized affinity table.
type Table struct {
	Scores   map[string]float64 `json:"scores"`
	Valid    int                `json:"valid"`
	Skipped  []RowIssue         `json:"skipped,omitempty"`
	MinValue float64            `json:"min_value"`
	MaxValue float64            `json:"max_value"`
}

// BuildTable parses geo code / metric rows and min-max scales the metric onto
// 0-100. Malformed rows are skipped individually; an error is returned only
// when no valid row remains. When all metrics are equal every code scores 100.
func BuildTable(rows [][]string, opts TableOptions) (*Table, error) {
	codeIdx, valueIdx := 0, 1
	start := 0
	if opts.HasHeader && len(rows) > 0 {
		start = 1
		var err error
		codeIdx, valueIdx, err = resolveColumns(rows[0], opts)
		if err != nil {
			return nil, err
		}
	}

	t := &Table{Scores: make(map[string]float64)}
	raw := make(map[string]float64)
	seen := make(map[string]bool)

	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if len(row) <= codeIdx || len(row) <= valueIdx {
			t.Skipped = append(t.Skipped, RowIssue{Row: rowNum, Reason: "missing columns"})
			continue
		}
		code := model.NormalizeCode(row[codeIdx])
		if code == "" {
			t.Skipped = append(t.Skipped, RowIssue{Row: rowNum, Reason: "empty geo code"})
			continue
		}
		v, err := ParseMetric(row[valueIdx])
		if err != nil {
			t.Skipped = append(t.Skipped, RowIssue{Row: rowNum, Reason: fmt.Sprintf("invalid metric %q", row[valueIdx])})
			continue
		}
		if seen[code] {
			t.Skipped = append(t.Skipped, RowIssue{Row: rowNum, Reason: fmt.Sprintf("duplicate geo code %s", code)})
			continue
		}
		seen[code] = true
		raw[code] = v
	}

	if len(raw) == 0 {
		return t, eris.Wrapf(ErrNoValidRows, "affinity: %d rows skipped", len(t.Skipped))
	}

	t.MinValue, t.MaxValue = math.Inf(1), math.Inf(-1)
	for _, v := range raw {
		t.MinValue = math.Min(t.MinValue, v)
		t.MaxValue = math.Max(t.MaxValue, v)
	}
	span := t.MaxValue - t.MinValue
	for code, v := range raw {
		if span == 0 {
			t.Scores[code] = MaxScore
			continue
		}
		t.Scores[code] = math.Round((v-t.MinValue)/span*MaxScore*100) / 100
	}
	t.Valid = len(raw)
	return t, nil
}

// Audience wraps the table as an affinity_table audience definition.
func (t *Table) Audience(id, name string) model.AudienceDefinition {
	scores := make(map[string]float64, len(t.Scores))
	for k, v := range t.Scores {
		scores[k] = v
	}
	return model.AudienceDefinition{
		ID:       id,
		Name:     name,
		Kind:     model.AudienceAffinityTable,
		Affinity: scores,
	}
}

// Codes returns the table's geo codes in ascending order.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.Scores))
	for c := range t.Scores {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ParseMetric parses a numeric cell, tolerating thousands separators, a
// trailing percent sign and surrounding space.
func ParseMetric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("affinity: empty metric")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "affinity: parse metric %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("affinity: metric %q is not finite", s)
	}
	return v, nil
}

func resolveColumns(header []string, opts TableOptions) (int, int, error) {
	codeIdx, valueIdx := -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if opts.CodeColumn != "" && name == strings.ToLower(opts.CodeColumn) {
			codeIdx = i
		}
		if opts.ValueColumn != "" && name == strings.ToLower(opts.ValueColumn) {
			valueIdx = i
		}
	}
	if opts.CodeColumn == "" {
		codeIdx = 0
	}
	if opts.ValueColumn == "" {
		valueIdx = 1
	}
	if codeIdx < 0 {
		return 0, 0, eris.Errorf("affinity: code column %q not found in header", opts.CodeColumn)
	}
	if valueIdx < 0 {
		return 0, 0, eris.Errorf("affinity: value column %q not found in header", opts.ValueColumn)
	}
	return codeIdx, valueIdx, nil
}
