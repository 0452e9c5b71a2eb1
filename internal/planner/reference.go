package planner

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/catalog"
	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/model"
)

// Reference is the static catalog data a Service plans against.
type Reference struct {
	Markets    []model.Market
	Audiences  []model.AudienceDefinition
	Dimensions []affinity.Dimension
}

// LoadReference reads the market catalog and, when present, the predefined
// audiences and builder dimensions.
func LoadReference(cfg config.CatalogConfig) (*Reference, error) {
	markets, err := catalog.LoadMarkets(cfg.MarketsPath)
	if err != nil {
		return nil, err
	}
	ref := &Reference{Markets: markets}

	if exists(cfg.AudiencesPath) {
		if ref.Audiences, err = catalog.LoadAudiences(cfg.AudiencesPath); err != nil {
			return nil, err
		}
	}
	if exists(cfg.DimensionsPath) {
		if ref.Dimensions, err = catalog.LoadDimensions(cfg.DimensionsPath); err != nil {
			return nil, err
		}
	}

	if len(ref.Markets) == 0 {
		return nil, eris.Errorf("planner: no markets in %s", cfg.MarketsPath)
	}

	zap.L().Info("planner: reference data loaded",
		zap.Int("markets", len(ref.Markets)),
		zap.Int("audiences", len(ref.Audiences)),
		zap.Int("dimensions", len(ref.Dimensions)),
	)
	return ref, nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
