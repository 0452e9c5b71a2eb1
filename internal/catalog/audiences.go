package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/model"
)

// LoadAudiences reads a YAML list of predefined audiences under a top-level
// "audiences" key. Audiences without a kind are criteria audiences.
func LoadAudiences(path string) ([]model.AudienceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read audiences %s", path)
	}

	var wrapper struct {
		Audiences []model.AudienceDefinition `yaml:"audiences"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse audiences")
	}

	for i := range wrapper.Audiences {
		a := &wrapper.Audiences[i]
		if a.Kind == "" {
			a.Kind = model.AudienceCriteria
		}
		if err := affinity.Validate(*a); err != nil {
			return nil, eris.Wrapf(err, "catalog: audience %d", i)
		}
	}
	return wrapper.Audiences, nil
}

// FindAudience returns the audience with the given id.
func FindAudience(audiences []model.AudienceDefinition, id string) (model.AudienceDefinition, bool) {
	for _, a := range audiences {
		if a.ID == id {
			return a, true
		}
	}
	return model.AudienceDefinition{}, false
}

// LoadDimensions reads the builder dimensions under a top-level "dimensions"
// key.
func LoadDimensions(path string) ([]affinity.Dimension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read dimensions %s", path)
	}

	var wrapper struct {
		Dimensions []affinity.Dimension `yaml:"dimensions"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse dimensions")
	}

	seen := make(map[string]bool, len(wrapper.Dimensions))
	for _, d := range wrapper.Dimensions {
		if d.ID == "" || d.Field == "" {
			return nil, eris.Errorf("catalog: dimension %q needs an id and a field", d.ID)
		}
		if seen[d.ID] {
			return nil, eris.Errorf("catalog: duplicate dimension %q", d.ID)
		}
		seen[d.ID] = true
	}
	return wrapper.Dimensions, nil
}
