package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// ============================================================================
// RULE HANDLERS
// ============================================================================

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateRule creates a new rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.engine.LoadRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// ============================================================================
// RISK PROFILE HANDLERS
// ============================================================================

// CreateProfileRequest is the request body for creating a risk profile.
type CreateProfileRequest struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Description    string                     `json:"description,omitempty"`
	Rules          []domain.ProfileRuleWeight `json:"rules"`
	AlertThreshold float64                    `json:"alertThreshold"`
	Enabled        bool                       `json:"enabled"`
}

// ListProfiles returns all loaded risk profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "profile engine not available",
		})
		return
	}

	profiles := h.profiles.GetLoadedProfiles()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
		"source":   "database",
	})
}

// GetProfile retrieves a risk profile by ID.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")

	if profileID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "profile id is required",
		})
		return
	}

	if h.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "profile engine not available",
		})
		return
	}

	for _, p := range h.profiles.GetLoadedProfiles() {
		if p.ID == profileID {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "profile not found",
	})
}

// validateProfileRules checks rule references and weights.
func (h *Handler) validateProfileRules(profileRules []domain.ProfileRuleWeight, checkExists bool) (float64, string) {
	ruleIDSet := make(map[string]bool)
	if checkExists {
		for _, rule := range h.engine.GetLoadedRules() {
			ruleIDSet[rule.ID] = true
		}
	}

	var totalWeight float64
	for _, rule := range profileRules {
		if rule.RuleID == "" {
			return 0, "rule_id cannot be empty"
		}
		if checkExists && !ruleIDSet[rule.RuleID] {
			return 0, fmt.Sprintf("rule_id '%s' does not exist in rule engine", rule.RuleID)
		}
		if rule.Weight < 0 || rule.Weight > 1 {
			return 0, "rule weight must be between 0 and 1"
		}
		totalWeight += rule.Weight
	}
	return totalWeight, ""
}

// CreateProfile creates a new risk profile and saves it to the database.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and name are required",
		})
		return
	}

	if len(req.Rules) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one rule is required",
		})
		return
	}

	totalWeight, validationErr := h.validateProfileRules(req.Rules, true)
	if validationErr != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr,
		})
		return
	}

	// Warn if weights don't sum to approximately 1.0 (allow 0.01 tolerance)
	if totalWeight < 0.99 || totalWeight > 1.01 {
		slog.Warn("profile weights do not sum to 1.0",
			"profile_id", req.ID,
			"total_weight", totalWeight,
		)
	}

	// Threshold must be > 0 to avoid triggering on every evaluation
	if req.AlertThreshold <= 0 || req.AlertThreshold > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alertThreshold must be between 0 (exclusive) and 1",
		})
		return
	}

	profile := &domain.RiskProfile{
		ID:             req.ID,
		TenantID:       GlobalTenantID,
		Name:           req.Name,
		Description:    req.Description,
		Version:        "1.0.0",
		Rules:          req.Rules,
		AlertThreshold: req.AlertThreshold,
		Enabled:        req.Enabled,
	}

	if h.repo != nil {
		if err := h.repo.SaveProfile(ctx, GlobalTenantID, profile); err != nil {
			slog.Error("failed to save profile", "id", profile.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save profile",
			})
			return
		}
	}

	slog.Info("profile created", "id", profile.ID, "name", profile.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"profile": profile,
		"message": "Profile created. Call POST /profiles/reload to apply changes.",
	})
}

// UpdateProfile updates an existing risk profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "id")

	if profileID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "profile id is required",
		})
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if _, validationErr := h.validateProfileRules(req.Rules, false); validationErr != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr,
		})
		return
	}

	profile := &domain.RiskProfile{
		ID:             profileID,
		TenantID:       GlobalTenantID,
		Name:           req.Name,
		Description:    req.Description,
		Version:        "1.0.0",
		Rules:          req.Rules,
		AlertThreshold: req.AlertThreshold,
		Enabled:        req.Enabled,
	}

	if h.repo != nil {
		if err := h.repo.SaveProfile(ctx, GlobalTenantID, profile); err != nil {
			slog.Error("failed to update profile", "id", profileID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update profile",
			})
			return
		}
	}

	slog.Info("profile updated", "id", profileID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
		"message": "Profile updated. Call POST /profiles/reload to apply changes.",
	})
}

// DeleteProfile deletes a risk profile and auto-reloads the engine.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "id")

	if profileID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "profile id is required",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.DeleteProfile(ctx, GlobalTenantID, profileID); err != nil {
			slog.Error("failed to delete profile", "id", profileID, "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "profile not found",
			})
			return
		}

		// Auto-reload profile engine after delete
		if h.profiles != nil {
			dbProfiles, err := h.repo.ListProfiles(ctx, GlobalTenantID)
			if err != nil {
				slog.Error("failed to reload profiles after delete", "error", err)
			} else {
				h.profiles.ReloadProfiles(dbProfiles)
				slog.Info("profiles auto-reloaded after delete", "count", len(dbProfiles))
			}
		}
	}

	slog.Info("profile deleted", "id", profileID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile deleted and engine reloaded.",
	})
}

// ReloadProfiles reloads all risk profiles from the database into the engine.
func (h *Handler) ReloadProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if h.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "profile engine not available",
		})
		return
	}

	dbProfiles, err := h.repo.ListProfiles(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list profiles from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load profiles from database",
		})
		return
	}

	h.profiles.ReloadProfiles(dbProfiles)

	slog.Info("profiles reloaded from database", "count", len(dbProfiles))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "profiles reloaded successfully",
		"count":   len(dbProfiles),
	})
}

// ============================================================================
// ALERT HANDLERS
// ============================================================================

// ListAlerts returns pending alerts from the registry, most urgent first.
// Query parameters: severity (low|medium|high|critical), limit.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert registry not available",
		})
		return
	}

	severity := domain.AlertSeverity(r.URL.Query().Get("severity"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	pending := h.alerts.Pending(severity, limit)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": pending,
		"count":  len(pending),
	})
}

// AlertHistory returns persisted alerts, including resolved ones.
func (h *Handler) AlertHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.repo.ListAlerts(ctx, tenantID, true, limit)
	if err != nil {
		slog.Error("failed to list alerts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alerts",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": history,
		"count":  len(history),
	})
}

// ResolveAlertRequest is the request body for resolving an alert.
type ResolveAlertRequest struct {
	ResolvedBy  string `json:"resolvedBy"`
	Notes       string `json:"notes,omitempty"`
	ActionTaken string `json:"actionTaken,omitempty"`
}

// ResolveAlert marks an alert resolved and persists the resolution.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	alertID := chi.URLParam(r, "id")

	if alertID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert id is required",
		})
		return
	}

	if h.alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert registry not available",
		})
		return
	}

	var req ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ResolvedBy == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "resolvedBy is required",
		})
		return
	}

	alert, ok := h.alerts.Resolve(alertID, req.ResolvedBy, req.Notes, req.ActionTaken)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "alert not found",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAlert(ctx, tenantID, alert); err != nil {
			slog.Error("failed to persist alert resolution", "alert_id", alertID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, alert)
}

// AlertStats returns aggregate alert statistics.
func (h *Handler) AlertStats(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert registry not available",
		})
		return
	}

	writeJSON(w, http.StatusOK, h.alerts.Statistics())
}

// SubjectAlerts returns alerts for one subject, plus whether the
// subject has crossed the auto-block bar.
func (h *Handler) SubjectAlerts(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")

	if subjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subject id is required",
		})
		return
	}

	if h.alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert registry not available",
		})
		return
	}

	includeResolved := r.URL.Query().Get("includeResolved") == "true"
	subjectAlerts := h.alerts.ForSubject(subjectID, includeResolved)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":          subjectAlerts,
		"count":           len(subjectAlerts),
		"shouldAutoBlock": h.alerts.ShouldAutoBlock(subjectID),
	})
}
