// Package alerts manages risk alerts raised by the scoring pipeline.
//
// The registry is process-lifetime in-memory state guarded by a single
// mutex. Alerts are additionally persisted through the repository and
// announced on the event bus when those are wired in by the caller.
package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// severityRank orders severities for triage, most urgent first.
var severityRank = map[domain.AlertSeverity]int{
	domain.SeverityCritical: 0,
	domain.SeverityHigh:     1,
	domain.SeverityMedium:   2,
	domain.SeverityLow:      3,
}

// Sink receives alerts as they are created, for persistence or
// notification fan-out.
type Sink interface {
	OnAlert(ctx context.Context, tenantID string, alert *domain.Alert)
}

// Registry is the in-memory alert store.
type Registry struct {
	mu     sync.Mutex
	alerts []*domain.Alert
	counts map[string]int // subjectID -> alert count

	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates an alert registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		counts: make(map[string]int),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the registry's time source. Used in tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// AddSink registers a sink notified on every created alert.
func (r *Registry) AddSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

// Create records a new alert. Severity is derived from the score and
// the subject's prior-alert count:
// critical at score >= 0.8 or >= 3 priors, high at >= 0.6 or >= 2,
// medium at >= 0.4, otherwise low.
func (r *Registry) Create(ctx context.Context, tenantID string, alertType domain.AlertType, subjectID string, score float64, details map[string]interface{}, targetID string) *domain.Alert {
	r.mu.Lock()

	history := r.counts[subjectID]

	var severity domain.AlertSeverity
	switch {
	case score >= 0.8 || history >= 3:
		severity = domain.SeverityCritical
	case score >= 0.6 || history >= 2:
		severity = domain.SeverityHigh
	case score >= 0.4:
		severity = domain.SeverityMedium
	default:
		severity = domain.SeverityLow
	}

	merged := map[string]interface{}{
		"scam_score":      score,
		"previous_alerts": history,
	}
	for k, v := range details {
		merged[k] = v
	}

	alert := &domain.Alert{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Type:      alertType,
		Severity:  severity,
		SubjectID: subjectID,
		TargetID:  targetID,
		Score:     score,
		Details:   merged,
		CreatedAt: r.now(),
	}

	r.alerts = append(r.alerts, alert)
	r.counts[subjectID] = history + 1

	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()

	r.logger.Warn("alert created",
		"alert_id", alert.ID,
		"tenant_id", tenantID,
		"type", alertType,
		"severity", severity,
		"subject_id", subjectID,
		"score", score,
	)

	for _, sink := range sinks {
		sink.OnAlert(ctx, tenantID, alert)
	}

	return alert
}

// Resolve marks an alert resolved. Returns false if the alert does
// not exist.
func (r *Registry) Resolve(alertID, resolvedBy, notes, actionTaken string) (*domain.Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, alert := range r.alerts {
		if alert.ID != alertID {
			continue
		}

		resolvedAt := r.now()
		alert.Resolved = true
		alert.ResolvedAt = &resolvedAt
		alert.ResolvedBy = resolvedBy
		alert.ResolutionNotes = notes
		alert.Details["action_taken"] = actionTaken

		r.logger.Info("alert resolved",
			"alert_id", alertID,
			"resolved_by", resolvedBy,
			"action", actionTaken,
		)

		return alert, true
	}

	return nil, false
}

// Pending returns unresolved alerts, optionally filtered by severity,
// sorted by severity then creation time, capped at limit.
func (r *Registry) Pending(severity domain.AlertSeverity, limit int) []*domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*domain.Alert, 0)
	for _, alert := range r.alerts {
		if alert.Resolved {
			continue
		}
		if severity != "" && alert.Severity != severity {
			continue
		}
		pending = append(pending, alert)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		ri, rj := severityRank[pending[i].Severity], severityRank[pending[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	return pending
}

// ForSubject returns alerts for a subject.
func (r *Registry) ForSubject(subjectID string, includeResolved bool) []*domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Alert, 0)
	for _, alert := range r.alerts {
		if alert.SubjectID != subjectID {
			continue
		}
		if !includeResolved && alert.Resolved {
			continue
		}
		result = append(result, alert)
	}
	return result
}

// Statistics aggregates counts across the registry.
func (r *Registry) Statistics() domain.AlertStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.AlertStatistics{
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}

	for _, alert := range r.alerts {
		stats.Total++
		if alert.Resolved {
			stats.Resolved++
		}
		stats.BySeverity[string(alert.Severity)]++
		stats.ByType[string(alert.Type)]++
	}
	stats.Pending = stats.Total - stats.Resolved

	for _, count := range r.counts {
		if count >= 3 {
			stats.RepeatOffenders++
		}
	}

	return stats
}

// ShouldAutoBlock reports whether a subject has crossed the
// auto-block bar: 2 or more critical alerts ever, or 3 or more
// high/critical alerts within the last 7 days.
func (r *Registry) ShouldAutoBlock(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var criticalCount, recentHigh int

	for _, alert := range r.alerts {
		if alert.SubjectID != subjectID {
			continue
		}
		if alert.Severity == domain.SeverityCritical {
			criticalCount++
		}
		if alert.Severity == domain.SeverityHigh || alert.Severity == domain.SeverityCritical {
			if now.Sub(alert.CreatedAt) < 7*24*time.Hour {
				recentHigh++
			}
		}
	}

	return criticalCount >= 2 || recentHigh >= 3
}

// RepositorySink persists alerts through the repository.
type RepositorySink struct {
	Repo   domain.Repository
	Logger *slog.Logger
}

// OnAlert saves the alert; persistence failures are logged, never
// surfaced to the scoring path.
func (s *RepositorySink) OnAlert(ctx context.Context, tenantID string, alert *domain.Alert) {
	if err := s.Repo.SaveAlert(ctx, tenantID, alert); err != nil && s.Logger != nil {
		s.Logger.Error("failed to persist alert", "alert_id", alert.ID, "error", err)
	}
}

// BusSink publishes high and critical alerts on the event bus.
// Lower severities are persisted but not announced.
type BusSink struct {
	Bus    domain.EventBus
	Logger *slog.Logger
}

// OnAlert publishes the alert on the alert topic.
func (s *BusSink) OnAlert(ctx context.Context, tenantID string, alert *domain.Alert) {
	if alert.Severity != domain.SeverityHigh && alert.Severity != domain.SeverityCritical {
		return
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return
	}
	if err := s.Bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil && s.Logger != nil {
		s.Logger.Error("failed to publish alert", "alert_id", alert.ID, "error", err)
	}
}
