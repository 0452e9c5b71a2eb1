package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/optimizer"
	"github.com/sells-group/campaign-planner/internal/planner"
	"github.com/sells-group/campaign-planner/internal/store"
)

func testService(t *testing.T, withStore bool) *planner.Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Catalog.DefaultMarket = "us"
	cfg.Catalog.DatasetVersion = "v1"
	cfg.Audience.MinScore = 50
	cfg.Audience.ExposedRatio = 0.5
	cfg.Optimizer = optimizer.DefaultConfig()
	cfg.Curve.Samples = 4

	ref := &planner.Reference{
		Markets: []model.Market{{
			ID:       "us",
			Universe: 1_000_000,
			Providers: []model.ProviderProfile{
				{ID: "ctv", MaxReachFraction: 0.6, CPM: 25, MaxFrequency: 6, Steepness: 1, Overlaps: map[string]float64{"social": 0.3}},
				{ID: "social", MaxReachFraction: 0.7, CPM: 8, MaxFrequency: 10, Steepness: 0.8},
			},
		}},
		Audiences: []model.AudienceDefinition{{
			ID:       "affluent",
			Kind:     model.AudienceCriteria,
			Criteria: []model.Criterion{{Field: "income", Weight: 1, Min: 50_000, Target: 100_000}},
		}},
		Dimensions: []affinity.Dimension{{ID: "income", Field: "income", Min: 50_000, Target: 100_000, Keywords: []string{"affluent"}}},
	}
	data := model.Dataset{
		"10001": {Code: "10001", Fields: map[string]float64{"income": 120_000}},
		"20001": {Code: "20001", Fields: map[string]float64{"income": 90_000}},
		"30001": {Code: "30001", Fields: map[string]float64{"income": 10_000}},
	}

	opts := []planner.Option{
		planner.WithDemographicsLoader(func(string) (model.Dataset, error) { return data, nil }),
	}
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		require.NoError(t, st.Migrate(context.Background()))
		opts = append(opts, planner.WithStore(st))
	}
	return planner.New(cfg, ref, opts...)
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewServer(testService(t, true), config.ServerConfig{}).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestMarkets(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Markets []model.Market `json:"markets"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Markets, 1)
	assert.Equal(t, "us", body.Markets[0].ID)
}

func TestAudiences(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodGet, "/api/audiences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"affluent"`)
}

func TestScore(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodPost, "/api/audiences/score", `{"audience_id":"affluent","limit":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int                `json:"total"`
		Units []model.ScoredUnit `json:"units"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Units, 2)
	assert.Equal(t, "10001", body.Units[0].Code)
	assert.Equal(t, 100, body.Units[0].Score)
}

func TestAffinityUpload(t *testing.T) {
	h := newTestHandler(t)
	body := `{"name":"Store visits","has_header":true,"value_column":"visits","csv":"zip,visits\n10001,50\n20001,150\nbad\n30001,100\n"}`
	rec := do(t, h, http.MethodPost, "/api/audiences/affinity", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Audience model.AudienceDefinition `json:"audience"`
		Valid    int                      `json:"valid"`
		Skipped  []affinity.RowIssue      `json:"skipped"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, 3, out.Valid)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, 4, out.Skipped[0].Row)
	assert.Equal(t, model.AudienceAffinityTable, out.Audience.Kind)
	assert.InDelta(t, 100, out.Audience.Affinity["20001"], 1e-9)
	assert.InDelta(t, 0, out.Audience.Affinity["10001"], 1e-9)
	assert.InDelta(t, 50, out.Audience.Affinity["30001"], 1e-9)

	// The returned audience can be sent back inline.
	inline, err := json.Marshal(map[string]any{"market": "us", "min_score": 40, "audience": out.Audience})
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/recommendations", string(inline))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recBody planner.Recommendation
	decodeBody(t, rec, &recBody)
	assert.Equal(t, 2, recBody.Stats.QualifiedUnits)
}

func TestAffinityUpload_Invalid(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/audiences/affinity", `{"rows":[["10001","n/a"]]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "skipped")

	rec = do(t, h, http.MethodPost, "/api/audiences/affinity", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/audiences/affinity", `{"has_header":true,"code_column":"fips","rows":[["zip","v"],["1","2"]]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommend(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodPost, "/api/recommendations", `{"market":"us","audience_id":"affluent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body planner.Recommendation
	decodeBody(t, rec, &body)
	assert.Equal(t, 2, body.Stats.QualifiedUnits)
	assert.Equal(t, 1, body.Stats.Exposed.Count)
	assert.Equal(t, 1, body.Stats.Holdout.Count)
}

func TestReachMetrics(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodPost, "/api/reach/metrics", `{"allocations":{"ctv":10000,"social":10000}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var m model.CombinedMetrics
	decodeBody(t, rec, &m)
	assert.InDelta(t, 20_000, m.Budget, 1e-9)
	assert.Greater(t, m.DedupedReach, 0.0)
	assert.LessOrEqual(t, m.DedupedReach, m.GrossReach)
}

func TestCurve(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodPost, "/api/reach/curve", `{"max_budget":30000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Points []model.CurvePoint `json:"points"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Points, 4)
	assert.InDelta(t, 30_000, body.Points[3].Budget, 1e-9)
}

func TestAllocate(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/budget/allocate", `{"mode":"equal","total_budget":100000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res optimizer.Result
	decodeBody(t, rec, &res)
	assert.Equal(t, model.AllocationMap{"ctv": 50_000, "social": 50_000}, res.Allocations)

	rec = do(t, h, http.MethodPost, "/api/budget/allocate", `{"mode":"auto","total_budget":80000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.InDelta(t, 80_000, res.Allocations.Total(), 1e-6)
}

func TestCompare(t *testing.T) {
	body := `{"scenarios":[
		{"name":"even","mode":"equal","total_budget":50000},
		{"name":"smart","mode":"auto","total_budget":50000}
	]}`
	rec := do(t, newTestHandler(t), http.MethodPost, "/api/budget/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Results []planner.ScenarioResult `json:"results"`
	}
	decodeBody(t, rec, &out)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "even", out.Results[0].Name)
	assert.Equal(t, "smart", out.Results[1].Name)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name, method, path, body string
	}{
		{"malformed json", http.MethodPost, "/api/budget/allocate", `{"mode":`},
		{"unknown mode", http.MethodPost, "/api/budget/allocate", `{"mode":"magic","total_budget":5}`},
		{"negative budget", http.MethodPost, "/api/budget/allocate", `{"total_budget":-5}`},
		{"unknown market", http.MethodPost, "/api/reach/curve", `{"market":"fr","max_budget":5}`},
		{"no audience", http.MethodPost, "/api/recommendations", `{}`},
		{"no scenarios", http.MethodPost, "/api/budget/compare", `{"scenarios":[]}`},
		{"bad limit", http.MethodGet, "/api/plans?limit=abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			decodeBody(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPlansLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/plans", `{"name":"launch","mode":"equal","total_budget":40000}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan model.Plan
	decodeBody(t, rec, &plan)
	require.NotEmpty(t, plan.ID)
	assert.Equal(t, "launch", plan.Name)

	rec = do(t, h, http.MethodGet, "/api/plans/"+plan.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/plans?market=us", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Plans []model.Plan `json:"plans"`
	}
	decodeBody(t, rec, &list)
	assert.Len(t, list.Plans, 1)

	rec = do(t, h, http.MethodDelete, "/api/plans/"+plan.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/plans/"+plan.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/plans/"+plan.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlans_NoStore(t *testing.T) {
	h := NewServer(testService(t, false), config.ServerConfig{}).Routes()
	rec := do(t, h, http.MethodGet, "/api/plans", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := NewServer(testService(t, false), config.ServerConfig{RateLimit: 0.001, RateBurst: 2}).Routes()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/markets", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/markets", "").Code)
	rec := do(t, h, http.MethodGet, "/api/markets", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks bypass the limiter.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodGet, "/api/markets", "")
	do(t, h, http.MethodPost, "/api/budget/allocate", `{"total_budget":10000}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "planner_http_requests_total"))
	assert.Contains(t, body, `route="/api/markets"`)
	assert.Contains(t, body, "planner_optimizer_iterations")
}

func TestRequestIDHeaderAccepted(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
