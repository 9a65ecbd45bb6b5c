// Package api is the JSON twin of the dashboard pages.
package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"survivaldash/app"
	"survivaldash/domain/filter"
	"survivaldash/domain/prediction"
	"survivaldash/internal"
	"survivaldash/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler serves the JSON API under /api.
type Handler struct {
	analysis   *app.AnalysisService
	prediction *app.PredictionService
	logger     *internal.Logger
}

// FilterInfo describes one available filter and its default widget.
type FilterInfo struct {
	filter.Definition
	Widget filter.Widget `json:"widget"`
}

// AnalysisBody is the request of POST /api/analysis. Values are keyed by
// widget id; sliders use the "<id>_low" and "<id>_high" keys.
type AnalysisBody struct {
	Enabled   []string            `json:"enabled"`
	Values    map[string][]string `json:"values"`
	Submitted bool                `json:"submitted"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewRouter returns the chi router with every API route mounted under /api.
func NewRouter(analysis *app.AnalysisService, predictions *app.PredictionService, logger *internal.Logger) http.Handler {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	h := &Handler{analysis: analysis, prediction: predictions, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Get("/filters", h.handleFilters)
		r.With(middleware.AllowContentType("application/json")).Post("/analysis", h.handleAnalysis)
		r.With(middleware.AllowContentType("application/json")).Post("/predict", h.handlePredict)
	})
	return r
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	set := h.analysis.Catalog().NewSet()
	out := make([]FilterInfo, 0, len(set.Filters()))
	for _, f := range set.Filters() {
		out = append(out, FilterInfo{Definition: f.Definition, Widget: f.Widget()})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var body AnalysisBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.InvalidInput("malformed analysis request: "+err.Error()))
		return
	}

	result, err := h.analysis.Run(r.Context(), app.AnalysisRequest{
		Enabled:   body.Enabled,
		Form:      url.Values(body.Values),
		Submitted: body.Submitted,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req prediction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("malformed prediction request: "+err.Error()))
		return
	}

	out, err := h.prediction.Predict(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("api: failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("api: %v", err)
	}
	h.writeJSON(w, status, errorBody{Error: err.Error(), Code: errors.GetCode(err)})
}
