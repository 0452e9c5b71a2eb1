package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/campaign-planner/internal/model"
)

// DefaultSteepness is applied to providers that omit a steepness constant.
const DefaultSteepness = 1.0

// LoadMarkets reads a YAML market catalog with a top-level "markets" list and
// applies provider defaults.
func LoadMarkets(path string) ([]model.Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read markets %s", path)
	}

	var wrapper struct {
		Markets []model.Market `yaml:"markets"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse markets")
	}

	seen := make(map[string]bool, len(wrapper.Markets))
	for i := range wrapper.Markets {
		m := &wrapper.Markets[i]
		if m.ID == "" {
			return nil, eris.Errorf("catalog: market %d has no id", i)
		}
		if seen[m.ID] {
			return nil, eris.Errorf("catalog: duplicate market %q", m.ID)
		}
		seen[m.ID] = true
		// An empty diversity model is detected from the codes at allocation time.
		switch m.Diversity {
		case "", model.DiversityNumeric, model.DiversityAlpha:
		default:
			return nil, eris.Errorf("catalog: market %q has unknown diversity model %q", m.ID, m.Diversity)
		}

		providers := make(map[string]bool, len(m.Providers))
		for j := range m.Providers {
			p := &m.Providers[j]
			if p.ID == "" {
				return nil, eris.Errorf("catalog: market %q provider %d has no id", m.ID, j)
			}
			if providers[p.ID] {
				return nil, eris.Errorf("catalog: market %q has duplicate provider %q", m.ID, p.ID)
			}
			providers[p.ID] = true
			if p.Name == "" {
				p.Name = p.ID
			}
			if p.Steepness == 0 {
				p.Steepness = DefaultSteepness
			}
		}
	}

	return wrapper.Markets, nil
}

// FindMarket returns the market with the given id.
func FindMarket(markets []model.Market, id string) (*model.Market, bool) {
	for i := range markets {
		if markets[i].ID == id {
			return &markets[i], true
		}
	}
	return nil, false
}
