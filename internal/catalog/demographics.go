package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/model"
)

var codeHeaders = []string{"code", "geo_code", "geocode", "postal_code", "zip"}

// LoadDemographics reads a CSV or XLSX demographic table. The first row names
// the fields and one of them must identify the geo code. Non-numeric cells
// load as 0; rows without a code are skipped.
func LoadDemographics(path string) (model.Dataset, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	data, err := ParseDemographics(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: demographics %s", path)
	}

	zap.L().Debug("catalog: loaded demographics",
		zap.String("path", path),
		zap.Int("units", len(data)),
	)
	return data, nil
}

// ParseDemographics converts header-led rows into a dataset keyed by
// normalized geo code. Later rows win on duplicate codes.
func ParseDemographics(rows [][]string) (model.Dataset, error) {
	if len(rows) == 0 {
		return nil, eris.New("catalog: demographic table is empty")
	}

	header := make([]string, len(rows[0]))
	codeCol := -1
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		if codeCol < 0 && isCodeHeader(header[i]) {
			codeCol = i
		}
	}
	if codeCol < 0 {
		return nil, eris.New("catalog: demographic table has no code column")
	}

	data := make(model.Dataset, len(rows)-1)
	for _, row := range rows[1:] {
		if codeCol >= len(row) {
			continue
		}
		code := model.NormalizeCode(row[codeCol])
		if code == "" {
			continue
		}

		rec := model.DemographicRecord{Code: code, Fields: make(map[string]float64)}
		for i, name := range header {
			if i == codeCol || name == "" {
				continue
			}
			var v float64
			if i < len(row) {
				if parsed, err := affinity.ParseMetric(row[i]); err == nil {
					v = parsed
				}
			}
			switch name {
			case model.FieldPopulation:
				rec.Population = int64(v)
			case model.FieldHouseholds:
				rec.Households = int64(v)
			default:
				rec.Fields[name] = v
			}
		}
		data[code] = rec
	}
	return data, nil
}

func isCodeHeader(h string) bool {
	for _, c := range codeHeaders {
		if h == c {
			return true
		}
	}
	return false
}
