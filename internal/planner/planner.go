// Package planner composes the planning engine with reference data and plan
// storage. It is the single entry point used by the CLI and the HTTP API.
package planner

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/catalog"
	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/geo"
	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/optimizer"
	"github.com/sells-group/campaign-planner/internal/reach"
	"github.com/sells-group/campaign-planner/internal/store"
)

var (
	// ErrInvalid marks requests rejected for bad input.
	ErrInvalid = eris.New("planner: invalid request")
	// ErrNoStore is returned by plan operations when no store is configured.
	ErrNoStore = eris.New("planner: no plan store configured")
)

// DemographicsLoader reads the demographic table at path.
type DemographicsLoader func(path string) (model.Dataset, error)

// Service answers planning requests.
type Service struct {
	cfg   *config.Config
	ref   *Reference
	cache *catalog.Cache
	store store.Store

	loadDemographics DemographicsLoader
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables plan persistence.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithCache shares a reference-data cache between services.
func WithCache(c *catalog.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithDemographicsLoader replaces the file-based demographics loader.
func WithDemographicsLoader(fn DemographicsLoader) Option {
	return func(s *Service) { s.loadDemographics = fn }
}

// New creates a Service.
func New(cfg *config.Config, ref *Reference, opts ...Option) *Service {
	s := &Service{
		cfg:              cfg,
		ref:              ref,
		loadDemographics: catalog.LoadDemographics,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = catalog.NewCache()
	}
	return s
}

// Markets returns the market catalog.
func (s *Service) Markets() []model.Market {
	return s.ref.Markets
}

// Audiences returns the predefined audiences.
func (s *Service) Audiences() []model.AudienceDefinition {
	return s.ref.Audiences
}

// Dimensions returns the audience builder dimensions.
func (s *Service) Dimensions() []affinity.Dimension {
	return s.ref.Dimensions
}

// Market resolves a market id, falling back to the configured default.
func (s *Service) Market(id string) (*model.Market, error) {
	if id == "" {
		id = s.cfg.Catalog.DefaultMarket
	}
	m, ok := catalog.FindMarket(s.ref.Markets, id)
	if !ok {
		return nil, eris.Wrapf(ErrInvalid, "unknown market %q", id)
	}
	return m, nil
}

// Demographics returns the demographic dataset of a market, loading it
// through the cache on first use.
func (s *Service) Demographics(marketID string) (model.Dataset, error) {
	m, err := s.Market(marketID)
	if err != nil {
		return nil, err
	}
	key := catalog.Key{Market: m.ID, Version: s.cfg.Catalog.DatasetVersion}
	b, err := s.cache.Load(key, func() (*catalog.Bundle, error) {
		path := strings.ReplaceAll(s.cfg.Catalog.DemographicsPath, "{market}", m.ID)
		data, err := s.loadDemographics(path)
		if err != nil {
			return nil, eris.Wrapf(err, "planner: load demographics for %s", m.ID)
		}
		return &catalog.Bundle{Market: *m, Demographics: data, LoadedAt: time.Now()}, nil
	})
	if err != nil {
		return nil, err
	}
	return b.Demographics, nil
}

// AudienceRequest names an audience in one of four ways, checked in order:
// an inline definition, a predefined audience id, a set of builder
// dimensions, or a free-text query.
type AudienceRequest struct {
	Audience   *model.AudienceDefinition `json:"audience,omitempty"`
	AudienceID string                    `json:"audience_id,omitempty"`
	Dimensions []string                  `json:"dimensions,omitempty"`
	Query      string                    `json:"query,omitempty"`
}

// ResolveAudience turns a request into a usable audience definition.
func (s *Service) ResolveAudience(req AudienceRequest) (model.AudienceDefinition, error) {
	switch {
	case req.Audience != nil:
		a := *req.Audience
		if a.Kind == "" {
			a.Kind = model.AudienceCriteria
		}
		if err := affinity.Validate(a); err != nil {
			return model.AudienceDefinition{}, eris.Wrap(ErrInvalid, err.Error())
		}
		return a, nil
	case req.AudienceID != "":
		a, ok := catalog.FindAudience(s.ref.Audiences, req.AudienceID)
		if !ok {
			return model.AudienceDefinition{}, eris.Wrapf(ErrInvalid, "unknown audience %q", req.AudienceID)
		}
		return a, nil
	case len(req.Dimensions) > 0:
		a, err := affinity.FromDimensions("custom", "Custom audience", s.ref.Dimensions, req.Dimensions)
		if err != nil {
			return model.AudienceDefinition{}, eris.Wrap(ErrInvalid, err.Error())
		}
		return a, nil
	case strings.TrimSpace(req.Query) != "":
		return affinity.MatchQuery(req.Query, s.ref.Dimensions), nil
	default:
		return model.AudienceDefinition{}, eris.Wrap(ErrInvalid, "an audience, audience_id, dimensions or query is required")
	}
}

// Score scores every unit of a market against an audience.
func (s *Service) Score(marketID string, req AudienceRequest) (model.AudienceDefinition, []model.ScoredUnit, error) {
	audience, err := s.ResolveAudience(req)
	if err != nil {
		return model.AudienceDefinition{}, nil, err
	}
	data, err := s.Demographics(marketID)
	if err != nil {
		return model.AudienceDefinition{}, nil, err
	}
	return audience, affinity.ScoreUnits(data, audience), nil
}

// RecommendRequest asks for an exposed/holdout split of a market's units.
// Nil thresholds fall back to the configured audience defaults.
type RecommendRequest struct {
	Market       string   `json:"market"`
	MinScore     *int     `json:"min_score,omitempty"`
	MaxUnits     *int     `json:"max_units,omitempty"`
	ExposedRatio *float64 `json:"exposed_ratio,omitempty"`
	AudienceRequest
}

// Recommendation is the outcome of Recommend.
type Recommendation struct {
	Market   string                   `json:"market"`
	Audience model.AudienceDefinition `json:"audience"`
	model.RecommendationSet
}

// Recommend scores a market's units and splits the qualifying ones into
// exposed and holdout groups.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "planner: recommend")
	}
	m, err := s.Market(req.Market)
	if err != nil {
		return nil, err
	}
	audience, units, err := s.Score(m.ID, req.AudienceRequest)
	if err != nil {
		return nil, err
	}

	p := geo.Params{
		MinScore:     s.cfg.Audience.MinScore,
		MaxUnits:     s.cfg.Audience.MaxUnits,
		ExposedRatio: s.cfg.Audience.ExposedRatio,
		Diversity:    m.Diversity,
	}
	if req.MinScore != nil {
		p.MinScore = *req.MinScore
	}
	if req.MaxUnits != nil {
		p.MaxUnits = *req.MaxUnits
	}
	if req.ExposedRatio != nil {
		p.ExposedRatio = *req.ExposedRatio
	}

	set := geo.Allocate(units, p)
	zap.L().Debug("planner: recommendation built",
		zap.String("market", m.ID),
		zap.String("audience", audience.ID),
		zap.Int("qualified", set.Stats.QualifiedUnits),
		zap.Int("exposed", set.Stats.Exposed.Count),
		zap.Int("holdout", set.Stats.Holdout.Count),
	)
	return &Recommendation{Market: m.ID, Audience: audience, RecommendationSet: set}, nil
}

// AllocateRequest asks for a budget allocation. An empty provider list
// enables every provider of the market.
type AllocateRequest struct {
	Market      string               `json:"market"`
	Mode        model.AllocationMode `json:"mode"`
	TotalBudget float64              `json:"total_budget"`
	Providers   []string             `json:"providers,omitempty"`
	Manual      model.AllocationMap  `json:"allocations,omitempty"`
}

// Allocate splits a budget in the requested mode and models the result.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) (*optimizer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "planner: allocate")
	}
	m, err := s.Market(req.Market)
	if err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = model.ModeAuto
	}
	if !req.Mode.Valid() {
		return nil, eris.Wrapf(ErrInvalid, "unknown allocation mode %q", req.Mode)
	}
	if math.IsNaN(req.TotalBudget) || math.IsInf(req.TotalBudget, 0) || req.TotalBudget < 0 {
		return nil, eris.Wrap(ErrInvalid, "total_budget must be a non-negative number")
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = m.ProviderIDs()
	}

	var res optimizer.Result
	switch req.Mode {
	case model.ModeEqual:
		alloc := optimizer.EqualSplit(req.TotalBudget, providers)
		res = optimizer.Result{Mode: model.ModeEqual, Allocations: alloc, Metrics: reach.Combine(m, alloc)}
	case model.ModeManual:
		alloc := optimizer.Manual(req.Manual)
		res = optimizer.Result{Mode: model.ModeManual, Allocations: alloc, Metrics: reach.Combine(m, alloc)}
	case model.ModeAuto:
		res = optimizer.Optimize(m, providers, req.TotalBudget, s.cfg.Optimizer)
	}
	return &res, nil
}

// Metrics models an explicit allocation in a market.
func (s *Service) Metrics(marketID string, alloc model.AllocationMap) (model.CombinedMetrics, error) {
	m, err := s.Market(marketID)
	if err != nil {
		return model.CombinedMetrics{}, err
	}
	return reach.Combine(m, optimizer.Manual(alloc)), nil
}

// CurveRequest asks for a budget/reach curve. Zero samples uses the
// configured default.
type CurveRequest struct {
	Market    string   `json:"market"`
	Providers []string `json:"providers,omitempty"`
	MaxBudget float64  `json:"max_budget"`
	Samples   int      `json:"samples,omitempty"`
}

// Curve samples deduplicated reach across budgets for an even split.
func (s *Service) Curve(ctx context.Context, req CurveRequest) ([]model.CurvePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "planner: curve")
	}
	m, err := s.Market(req.Market)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(req.MaxBudget) || math.IsInf(req.MaxBudget, 0) || req.MaxBudget < 0 {
		return nil, eris.Wrap(ErrInvalid, "max_budget must be a non-negative number")
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = m.ProviderIDs()
	}
	samples := req.Samples
	if samples == 0 {
		samples = s.cfg.Curve.Samples
	}
	return reach.Curve(m, providers, req.MaxBudget, samples), nil
}
