package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/globaltrusthub/trusthub/internal/alerts"
	"github.com/globaltrusthub/trusthub/internal/decay"
	"github.com/globaltrusthub/trusthub/internal/decision"
	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/fraud"
	"github.com/globaltrusthub/trusthub/internal/patterns"
	"github.com/globaltrusthub/trusthub/internal/rules"
	"github.com/globaltrusthub/trusthub/internal/trust"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	engine     *rules.Engine
	profiles   *rules.ProfileEngine
	calculator *trust.Calculator
	decay      *decay.Engine
	analyzer   *patterns.Analyzer
	scorer     *decision.ConfidenceScorer
	pipeline   *fraud.Pipeline
	alerts     *alerts.Registry
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, profiles *rules.ProfileEngine, calculator *trust.Calculator, decayEngine *decay.Engine, analyzer *patterns.Analyzer, scorer *decision.ConfidenceScorer, pipeline *fraud.Pipeline, alertRegistry *alerts.Registry, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		engine:     engine,
		profiles:   profiles,
		calculator: calculator,
		decay:      decayEngine,
		analyzer:   analyzer,
		scorer:     scorer,
		pipeline:   pipeline,
		alerts:     alertRegistry,
		version:    version,
	}
}

// GlobalTenantID is used for rules and profiles that apply to all tenants.
const GlobalTenantID = "*"

// ============================================================================
// TRUST SCORE HANDLERS
// ============================================================================

// ScoreResponse is the response for POST /score.
type ScoreResponse struct {
	EvaluationID string             `json:"evaluationId"`
	SubjectID    string             `json:"subjectId"`
	Score        float64            `json:"score"`
	Level        domain.TrustLevel  `json:"level"`
	Components   map[string]float64 `json:"components"`
	Breakdown    map[string]float64 `json:"breakdown"`
	Tips         []string           `json:"tips,omitempty"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// ComputeScore handles POST /score requests.
func (h *Handler) ComputeScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SubjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subjectId is required",
		})
		return
	}

	total, level, components, breakdown, tips := h.calculator.Score(&req)

	eval := &domain.ScoreEvaluation{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		SubjectID:  req.SubjectID,
		Score:      total,
		Level:      level,
		Timestamp:  time.Now().UTC(),
		Breakdown:  breakdown,
		Components: components,
		Tips:       tips,
		Metadata: domain.EvaluationMetadata{
			TraceID:       traceID,
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: h.version,
		},
	}

	if h.repo != nil {
		if err := h.repo.SaveScoreEvaluation(ctx, tenantID, eval); err != nil {
			slog.Error("failed to save score evaluation", "error", err)
		}
		_ = h.repo.RecordSubjectEvent(ctx, tenantID, &domain.SubjectEvent{
			SubjectID: req.SubjectID,
			Type:      domain.EventScoreRequest,
		})
	}

	if h.cache != nil {
		_ = h.cache.SetScore(ctx, tenantID, req.SubjectID, &domain.ScoreCache{
			SubjectID: req.SubjectID,
			Score:     total,
			Level:     string(level),
			Timestamp: eval.Timestamp.Format(time.RFC3339),
		}, time.Hour)
	}

	if h.bus != nil {
		payload, _ := json.Marshal(eval)
		_ = h.bus.Publish(ctx, tenantID, domain.TopicScoreUpdated, payload)
	}

	resp := ScoreResponse{
		EvaluationID: eval.ID,
		SubjectID:    req.SubjectID,
		Score:        total,
		Level:        level,
		Components:   components,
		Breakdown:    breakdown,
		Tips:         tips,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetScoreEvaluation retrieves a stored score evaluation by ID.
func (h *Handler) GetScoreEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	evalID := chi.URLParam(r, "id")

	if evalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.GetScoreEvaluation(ctx, tenantID, evalID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// GetSubjectScore returns the latest score for a subject, preferring
// the cache over the repository.
func (h *Handler) GetSubjectScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	subjectID := chi.URLParam(r, "id")

	if subjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subject id is required",
		})
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.GetScore(ctx, tenantID, subjectID); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"subjectId": cached.SubjectID,
				"score":     cached.Score,
				"level":     cached.Level,
				"timestamp": cached.Timestamp,
				"source":    "cache",
			})
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.LatestScoreEvaluation(ctx, tenantID, subjectID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no score found for subject",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// ============================================================================
// DECAY HANDLERS
// ============================================================================

// DecayRequest is the request body for POST /score/decay.
type DecayRequest struct {
	SubjectID    string           `json:"subjectId"`
	CurrentScore float64          `json:"currentScore"`
	LastActivity *time.Time       `json:"lastActivity,omitempty"`
	Documents    []decay.Document `json:"documents,omitempty"`
	Events       []DecayEvent     `json:"events,omitempty"`
}

// DecayEvent describes one negative event to apply.
type DecayEvent struct {
	Reason   string  `json:"reason"`
	Severity float64 `json:"severity"`
}

// DecayResponse is the response for POST /score/decay.
type DecayResponse struct {
	SubjectID     string                  `json:"subjectId"`
	PreviousScore float64                 `json:"previousScore"`
	NewScore      float64                 `json:"newScore"`
	TotalDecay    float64                 `json:"totalDecay"`
	Reasons       []string                `json:"reasons,omitempty"`
	ExpiredDocs   []decay.ExpiredDocument `json:"expiredDocuments,omitempty"`
}

// ApplyDecay handles POST /score/decay requests. Inactivity, document
// expiry, and event decay are applied in that order against the
// running score, which is floored at 0.
func (h *Handler) ApplyDecay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req DecayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.CurrentScore < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "currentScore must be non-negative",
		})
		return
	}

	score := req.CurrentScore
	var totalDecay float64
	var reasons []string

	if req.LastActivity != nil {
		amount, reason := h.decay.InactivityDecay(*req.LastActivity, score)
		if amount > 0 {
			totalDecay += amount
			score -= amount
			reasons = append(reasons, reason)
		}
	}

	var expired []decay.ExpiredDocument
	if len(req.Documents) > 0 {
		amount, docs := h.decay.DocumentExpiryDecay(req.Documents, score)
		if amount > 0 {
			totalDecay += amount
			score -= amount
			expired = docs
			reasons = append(reasons, "Expired documents")
		}
	}

	for _, event := range req.Events {
		severity := event.Severity
		if severity == 0 {
			severity = 1.0
		}
		newScore, amount := h.decay.EventDecay(event.Reason, math.Max(0, score), severity)
		totalDecay += amount
		score = newScore
		if amount > 0 {
			reasons = append(reasons, event.Reason)
		}
	}

	score = math.Max(0, score)

	resp := DecayResponse{
		SubjectID:     req.SubjectID,
		PreviousScore: req.CurrentScore,
		NewScore:      score,
		TotalDecay:    totalDecay,
		Reasons:       reasons,
		ExpiredDocs:   expired,
	}

	if h.bus != nil && totalDecay > 0 {
		payload, _ := json.Marshal(resp)
		_ = h.bus.Publish(ctx, tenantID, domain.TopicDecayApplied, payload)
	}

	writeJSON(w, http.StatusOK, resp)
}

// RecoveryRequest is the request body for POST /score/recovery.
type RecoveryRequest struct {
	SubjectID      string  `json:"subjectId"`
	CurrentScore   float64 `json:"currentScore"`
	BaseScore      float64 `json:"baseScore"`
	PositiveEvents int     `json:"positiveEvents"`
	ActiveWeeks    int     `json:"activeWeeks"`
}

// ApplyRecovery handles POST /score/recovery requests.
func (h *Handler) ApplyRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.BaseScore <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "baseScore must be positive",
		})
		return
	}

	recovery, reason := h.decay.Recovery(req.CurrentScore, req.BaseScore, req.PositiveEvents, req.ActiveWeeks)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subjectId":     req.SubjectID,
		"previousScore": req.CurrentScore,
		"newScore":      req.CurrentScore + recovery,
		"recovery":      recovery,
		"reason":        reason,
	})
}

// ForecastDecay handles GET /score/forecast requests.
// Query parameters: score, lastActivity (RFC3339), weeks.
func (h *Handler) ForecastDecay(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseFloat(r.URL.Query().Get("score"), 64)
	if err != nil || score < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score query parameter must be a non-negative number",
		})
		return
	}

	lastActivity, err := time.Parse(time.RFC3339, r.URL.Query().Get("lastActivity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "lastActivity query parameter must be RFC3339",
		})
		return
	}

	weeks := 12
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		weeks, err = strconv.Atoi(raw)
		if err != nil || weeks < 1 || weeks > 52 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "weeks must be between 1 and 52",
			})
			return
		}
	}

	forecast := h.decay.Forecast(score, lastActivity, weeks)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"currentScore": score,
		"weeks":        weeks,
		"forecast":     forecast,
	})
}

// ============================================================================
// MESSAGE ANALYSIS HANDLERS
// ============================================================================

// AnalyzeMessageRequest is the request body for POST /messages/analyze.
type AnalyzeMessageRequest struct {
	Text      string  `json:"text"`
	SenderID  string  `json:"senderId,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// AnalyzeMessage handles POST /messages/analyze requests.
// A scam verdict for an identified sender raises an alert.
func (h *Handler) AnalyzeMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req AnalyzeMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "text is required",
		})
		return
	}

	var prediction patterns.Prediction
	if req.Threshold > 0 {
		prediction = h.analyzer.PredictWithThreshold(req.Text, req.Threshold)
	} else {
		prediction = h.analyzer.Predict(req.Text)
	}

	if prediction.IsScam && req.SenderID != "" && h.alerts != nil {
		h.alerts.Create(ctx, tenantID, domain.AlertScamMessage, req.SenderID, prediction.ScamProbability, map[string]interface{}{
			"preview": prediction.Text,
		}, "")
	}

	if h.repo != nil && req.SenderID != "" {
		_ = h.repo.RecordSubjectEvent(ctx, tenantID, &domain.SubjectEvent{
			SubjectID: req.SenderID,
			Type:      domain.EventMessage,
		})
	}

	writeJSON(w, http.StatusOK, prediction)
}

// AnalyzeConversationRequest is the request body for POST /conversations/analyze.
type AnalyzeConversationRequest struct {
	Messages []patterns.Message `json:"messages"`
}

// AnalyzeConversation handles POST /conversations/analyze requests.
func (h *Handler) AnalyzeConversation(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	analysis := h.analyzer.AnalyzeConversation(req.Messages)

	writeJSON(w, http.StatusOK, analysis)
}

// ============================================================================
// VERIFICATION DECISION HANDLERS
// ============================================================================

// VerificationRequest is the request body for POST /verification/decide.
type VerificationRequest struct {
	SubjectID string                   `json:"subjectId"`
	Documents []domain.DocumentSignals `json:"documents"`
}

// VerificationResponse is the response for POST /verification/decide.
type VerificationResponse struct {
	SubjectID    string                    `json:"subjectId"`
	Result       domain.DocumentSetResult  `json:"result"`
	Explanations map[string][]string       `json:"explanations,omitempty"`
	Individual   []domain.ConfidenceResult `json:"individual"`
}

// DecideVerification handles POST /verification/decide requests.
// Each document is scored individually and the weakest document
// drives the set decision.
func (h *Handler) DecideVerification(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one document is required",
		})
		return
	}

	results := make([]domain.ConfidenceResult, 0, len(req.Documents))
	explanations := make(map[string][]string, len(req.Documents))
	for _, signals := range req.Documents {
		result := h.scorer.Score(signals)
		results = append(results, result)
		explanations[signals.DocumentType] = h.scorer.Explanations(result)
	}

	setResult := h.scorer.DocumentSetScore(results)

	writeJSON(w, http.StatusOK, VerificationResponse{
		SubjectID:    req.SubjectID,
		Result:       setResult,
		Explanations: explanations,
		Individual:   results,
	})
}

// ============================================================================
// FRAUD EVALUATION HANDLERS
// ============================================================================

// FraudResponse is the response for POST /fraud/evaluate.
type FraudResponse struct {
	EvaluationID string   `json:"evaluationId"`
	SubjectID    string   `json:"subjectId"`
	Status       string   `json:"status"`
	Score        float64  `json:"score"`
	Probability  float64  `json:"probability"`
	RiskLevel    string   `json:"riskLevel"`
	Reasons      []string `json:"reasons,omitempty"`
	Factors      []string `json:"factors,omitempty"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// EvaluateFraud handles POST /fraud/evaluate requests.
func (h *Handler) EvaluateFraud(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req fraud.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SubjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subjectId is required",
		})
		return
	}

	req.TenantID = tenantID
	req.TraceID = traceID
	if req.VelocityWindow == 0 {
		req.VelocityWindow = 3600
	}

	evaluation, err := h.pipeline.Evaluate(ctx, &req)
	if err != nil {
		slog.Error("fraud evaluation failed", "subject_id", req.SubjectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "fraud evaluation failed",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveFraudEvaluation(ctx, tenantID, evaluation); err != nil {
			slog.Error("failed to save fraud evaluation", "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(evaluation)
		_ = h.bus.Publish(ctx, tenantID, domain.TopicDecision, payload)
	}

	if fraud.ShouldAlert(evaluation) && h.alerts != nil {
		h.alerts.Create(ctx, tenantID, domain.AlertSuspiciousPattern, req.SubjectID, evaluation.Score, map[string]interface{}{
			"evaluation_id": evaluation.ID,
			"status":        evaluation.Status,
		}, "")
	}

	resp := FraudResponse{
		EvaluationID: evaluation.ID,
		SubjectID:    evaluation.SubjectID,
		Status:       evaluation.Status,
		Score:        evaluation.Score,
		Probability:  evaluation.Probability,
		RiskLevel:    evaluation.RiskLevel,
		Reasons:      fraud.GetReasons(evaluation),
		Factors:      evaluation.Factors,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetFraudEvaluation retrieves a stored fraud evaluation by ID.
func (h *Handler) GetFraudEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	evalID := chi.URLParam(r, "id")

	if evalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.GetFraudEvaluation(ctx, tenantID, evalID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// ============================================================================
// HEALTH HANDLERS
// ============================================================================

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
