// Package api exposes HTTP handlers for the training-load service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/auth"
	"example.com/trainingload/internal/domain"
)

const dateLayout = "2006-01-02"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/training-load/acwr", h.acwr)
	mux.HandleFunc("/v1/training-load/history", h.history)
	mux.HandleFunc("/v1/training-load/recompute", h.recompute)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) acwr(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	refDate := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
			return
		}
		refDate = parsed
	}

	var params domain.AssessmentParams
	if raw := r.URL.Query().Get("decay_rate"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "decay_rate must be a number")
			return
		}
		params.DecayRate = parsed
	}
	if raw := r.URL.Query().Get("chronic_period_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "chronic_period_days must be an integer")
			return
		}
		params.ChronicPeriodDays = parsed
	}

	report, err := h.service.Assess(r.Context(), claims.TenantID, userID, refDate, params)
	if err != nil {
		if errors.Is(err, acwr.ErrInvalidDecayRate) || errors.Is(err, acwr.ErrInvalidChronicPeriod) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toACWRView(userID, acwr.Day(refDate), report))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	from, to, err := parseRange(r, 27)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rows, err := h.service.History(r.Context(), claims.TenantID, userID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]DailyMetricsView, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDailyMetricsView(row))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: items})
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	from, _ := time.Parse(dateLayout, req.From)
	to, _ := time.Parse(dateLayout, req.To)

	result, err := h.service.RecomputeRange(r.Context(), claims.TenantID, req.UserID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, RecomputeResponse{
		UserID:   req.UserID,
		From:     req.From,
		To:       req.To,
		Computed: result.Computed,
		Skipped:  result.Skipped,
	})
}

// requireScope validates authentication and ensures the claims hold at least
// one of the listed scopes; on failure the HTTP error is already written.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// parseRange reads from/to query params, defaulting to the trailing
// defaultSpan days ending today.
func parseRange(r *http.Request, defaultSpan int) (time.Time, time.Time, error) {
	to := acwr.Day(time.Now().UTC())
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -defaultSpan)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("from must not be after to")
	}
	return from, to, nil
}

// ACWRView is the response body for GET /v1/training-load/acwr. Exactly one
// of Metrics or EdgeCaseType is populated.
type ACWRView struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`

	AcuteLoadAvg         *float64 `json:"acute_load_avg,omitempty"`
	AcuteTRIMPAvg        *float64 `json:"acute_trimp_avg,omitempty"`
	ChronicLoad          *float64 `json:"enhanced_chronic_load,omitempty"`
	ChronicTRIMP         *float64 `json:"enhanced_chronic_trimp,omitempty"`
	LoadRatio            *float64 `json:"enhanced_acute_chronic_ratio,omitempty"`
	TRIMPRatio           *float64 `json:"enhanced_trimp_acute_chronic_ratio,omitempty"`
	NormalizedDivergence *float64 `json:"enhanced_normalized_divergence,omitempty"`
	DecayRate            *float64 `json:"decay_rate,omitempty"`
	Method               string   `json:"calculation_method,omitempty"`
	DataQuality          string   `json:"data_quality,omitempty"`
	Optimization         string   `json:"performance_optimization,omitempty"`
	BatchesProcessed     int      `json:"batches_processed,omitempty"`

	EdgeCaseType    string `json:"edge_case_type,omitempty"`
	EdgeCaseMessage string `json:"edge_case_message,omitempty"`
}

func toACWRView(userID string, day time.Time, report acwr.Report) ACWRView {
	view := ACWRView{
		UserID: userID,
		Date:   day.Format(dateLayout),
	}
	if report.Gap != nil {
		view.EdgeCaseType = string(report.Gap.Kind)
		view.EdgeCaseMessage = report.Gap.Message
		return view
	}

	m := report.Computed
	view.AcuteLoadAvg = &m.AcuteLoadAvg
	view.AcuteTRIMPAvg = &m.AcuteTRIMPAvg
	view.ChronicLoad = &m.ChronicLoad
	view.ChronicTRIMP = &m.ChronicTRIMP
	view.LoadRatio = &m.LoadRatio
	view.TRIMPRatio = &m.TRIMPRatio
	view.NormalizedDivergence = &m.NormalizedDivergence
	view.DecayRate = &m.DecayRate
	view.Method = m.Method
	view.DataQuality = m.DataQuality
	view.Optimization = m.Optimization
	view.BatchesProcessed = m.BatchesProcessed
	return view
}

// DailyMetricsView exposes a stored daily metrics row.
type DailyMetricsView struct {
	UserID               string    `json:"user_id"`
	Date                 string    `json:"date"`
	AcuteLoadAvg         float64   `json:"acute_load_avg"`
	AcuteTRIMPAvg        float64   `json:"acute_trimp_avg"`
	ChronicLoad          float64   `json:"enhanced_chronic_load"`
	ChronicTRIMP         float64   `json:"enhanced_chronic_trimp"`
	LoadRatio            float64   `json:"enhanced_acute_chronic_ratio"`
	TRIMPRatio           float64   `json:"enhanced_trimp_acute_chronic_ratio"`
	NormalizedDivergence float64   `json:"enhanced_normalized_divergence"`
	DecayRate            float64   `json:"decay_rate"`
	Method               string    `json:"calculation_method"`
	DataQuality          string    `json:"data_quality,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func toDailyMetricsView(row domain.DailyMetrics) DailyMetricsView {
	return DailyMetricsView{
		UserID:               row.UserID,
		Date:                 row.Date.Format(dateLayout),
		AcuteLoadAvg:         row.AcuteLoadAvg,
		AcuteTRIMPAvg:        row.AcuteTRIMPAvg,
		ChronicLoad:          row.ChronicLoad,
		ChronicTRIMP:         row.ChronicTRIMP,
		LoadRatio:            row.LoadRatio,
		TRIMPRatio:           row.TRIMPRatio,
		NormalizedDivergence: row.NormalizedDivergence,
		DecayRate:            row.DecayRate,
		Method:               row.Method,
		DataQuality:          row.DataQuality,
		UpdatedAt:            row.UpdatedAt,
	}
}

// HistoryResponse packages the history rows.
type HistoryResponse struct {
	Items []DailyMetricsView `json:"items"`
}

// RecomputeRequest is the payload for POST /v1/training-load/recompute.
type RecomputeRequest struct {
	UserID string `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Validate ensures request correctness.
func (r RecomputeRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	from, err := time.Parse(dateLayout, r.From)
	if err != nil {
		return errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, r.To)
	if err != nil {
		return errors.New("to must be YYYY-MM-DD")
	}
	if from.After(to) {
		return errors.New("from must not be after to")
	}
	return nil
}

// RecomputeResponse summarises a recompute run.
type RecomputeResponse struct {
	UserID   string `json:"user_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Computed int    `json:"computed"`
	Skipped  int    `json:"skipped"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
