package catalog

import (
	"github.com/sells-group/campaign-planner/internal/affinity"
)

// LoadAffinityTable reads an uploaded CSV or XLSX affinity table and
// normalizes it. Row-level problems are reported on the returned table; an
// error wrapping affinity.ErrNoValidRows means nothing usable was found.
func LoadAffinityTable(path string, opts affinity.TableOptions) (*affinity.Table, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	return affinity.BuildTable(rows, opts)
}
