package api

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/planner"
	"github.com/sells-group/campaign-planner/internal/store"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps service errors onto status codes.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, planner.ErrInvalid), eris.Is(err, affinity.ErrNoValidRows):
		respondError(w, http.StatusBadRequest, err.Error())
	case eris.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case eris.Is(err, planner.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, "plan storage is not configured")
	default:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"markets": s.svc.Markets()})
}

func (s *Server) handleAudiences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"audiences":  s.svc.Audiences(),
		"dimensions": s.svc.Dimensions(),
	})
}

type scoreRequest struct {
	Market string `json:"market"`
	Limit  int    `json:"limit,omitempty"`
	planner.AudienceRequest
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}
	audience, units, err := s.svc.Score(req.Market, req.AudienceRequest)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	total := len(units)
	if req.Limit > 0 && len(units) > req.Limit {
		units = units[:req.Limit]
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"audience": audience,
		"total":    total,
		"units":    units,
	})
}

type affinityRequest struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rows        [][]string `json:"rows,omitempty"`
	CSV         string     `json:"csv,omitempty"`
	HasHeader   bool       `json:"has_header"`
	CodeColumn  string     `json:"code_column,omitempty"`
	ValueColumn string     `json:"value_column,omitempty"`
}

// handleAffinity normalizes an uploaded geo code / metric table into an
// affinity_table audience that can be sent back inline to other endpoints.
func (s *Server) handleAffinity(w http.ResponseWriter, r *http.Request) {
	var req affinityRequest
	if !decode(w, r, &req) {
		return
	}
	rows := req.Rows
	if len(rows) == 0 && req.CSV != "" {
		cr := csv.NewReader(strings.NewReader(req.CSV))
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		parsed, err := cr.ReadAll()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid csv")
			return
		}
		rows = parsed
	}
	if len(rows) == 0 {
		respondError(w, http.StatusBadRequest, "rows or csv is required")
		return
	}

	table, err := affinity.BuildTable(rows, affinity.TableOptions{
		HasHeader:   req.HasHeader,
		CodeColumn:  req.CodeColumn,
		ValueColumn: req.ValueColumn,
	})
	if err != nil {
		if eris.Is(err, affinity.ErrNoValidRows) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":   err.Error(),
				"skipped": table.Skipped,
			})
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, name := req.ID, req.Name
	if id == "" {
		id = "upload"
	}
	if name == "" {
		name = "Uploaded affinity table"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"audience":  table.Audience(id, name),
		"valid":     table.Valid,
		"skipped":   table.Skipped,
		"min_value": table.MinValue,
		"max_value": table.MaxValue,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req planner.RecommendRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.svc.Recommend(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type metricsRequest struct {
	Market      string              `json:"market"`
	Allocations model.AllocationMap `json:"allocations"`
}

func (s *Server) handleReachMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.Metrics(req.Market, req.Allocations)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	var req planner.CurveRequest
	if !decode(w, r, &req) {
		return
	}
	points, err := s.svc.Curve(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req planner.AllocateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.Allocate(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if res.Mode == model.ModeAuto {
		s.metrics.OptimizerRounds.Observe(float64(res.Iterations))
	}
	respondJSON(w, http.StatusOK, res)
}

type compareRequest struct {
	Scenarios []planner.Scenario `json:"scenarios"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}
	results, err := s.svc.Compare(r.Context(), req.Scenarios)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

type savePlanRequest struct {
	Name string `json:"name"`
	planner.AllocateRequest
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req savePlanRequest
	if !decode(w, r, &req) {
		return
	}
	plan, err := s.svc.SavePlan(r.Context(), req.Name, req.AllocateRequest)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PlanFilter{
		Market: q.Get("market"),
		Mode:   model.AllocationMode(q.Get("mode")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}

	plans, err := s.svc.ListPlans(r.Context(), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.svc.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
