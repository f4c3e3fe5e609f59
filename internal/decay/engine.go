// Package decay implements time- and event-driven trust score erosion
// and bounded recovery.
package decay

import (
	"fmt"
	"math"
	"time"
)

// Decay reasons.
const (
	ReasonInactivity         = "inactivity"
	ReasonDocumentExpiry     = "document_expiry"
	ReasonNegativeReview     = "negative_review"
	ReasonReportReceived     = "report_received"
	ReasonSubscriptionLapse  = "subscription_lapse"
	ReasonFailedVerification = "failed_verification"
)

// Config holds the decay policy constants.
type Config struct {
	// Inactivity decay
	InactivityThresholdDays int     // days before decay starts
	InactivityDecayRate     float64 // per week beyond threshold
	MaxInactivityDecay      float64 // cap on the decay factor

	// Document expiry decay
	DocExpiryDecay float64 // fraction of score per expired document

	// Event-based decay rates by reason
	NegativeReviewDecay     float64
	ReportDecay             float64
	SubscriptionLapseDecay  float64
	FailedVerificationDecay float64
	DefaultEventDecay       float64

	// Recovery rates
	PositiveReviewRecovery float64 // per positive event
	ActivityRecoveryRate   float64 // per active week
	MaxRecoveryPerWeek     float64 // cap, as fraction of base score
}

// DefaultConfig returns the standard decay policy.
func DefaultConfig() Config {
	return Config{
		InactivityThresholdDays: 30,
		InactivityDecayRate:     0.02,
		MaxInactivityDecay:      0.30,

		DocExpiryDecay: 0.10,

		NegativeReviewDecay:     0.02,
		ReportDecay:             0.05,
		SubscriptionLapseDecay:  0.15,
		FailedVerificationDecay: 0.10,
		DefaultEventDecay:       0.05,

		PositiveReviewRecovery: 0.01,
		ActivityRecoveryRate:   0.05,
		MaxRecoveryPerWeek:     0.10,
	}
}

// Document describes a verified document with an optional expiry date
// for expiry decay calculation.
type Document struct {
	Type       string     `json:"type"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// ExpiredDocument records one expired document and its applied decay.
type ExpiredDocument struct {
	DocumentType string    `json:"documentType"`
	ExpiredAt    time.Time `json:"expiredAt"`
	DecayApplied float64   `json:"decayApplied"`
}

// WeekProjection is one week of a decay forecast.
type WeekProjection struct {
	Week           int       `json:"week"`
	Date           time.Time `json:"date"`
	ProjectedScore float64   `json:"projectedScore"`
	Decay          float64   `json:"decay"`
	Reason         string    `json:"reason"`
}

// Engine applies decay and recovery policies to trust scores.
// All methods are pure given their inputs plus the injected clock.
type Engine struct {
	config Config
	now    func() time.Time
}

// NewEngine creates a decay engine with the given policy.
func NewEngine(config Config) *Engine {
	return &Engine{config: config, now: time.Now}
}

// WithClock overrides the engine's time source. Used in tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// InactivityDecay computes decay from prolonged inactivity.
// No decay applies within the threshold window. Beyond it the decay
// factor follows 1 - exp(-rate * weeksOver), capped at the configured
// maximum, so decay slows as inactivity accumulates.
// Returns the decay amount and a human-readable reason, or (0, "")
// when no decay applies.
func (e *Engine) InactivityDecay(lastActivity time.Time, currentScore float64) (float64, string) {
	daysInactive := int(e.now().Sub(lastActivity).Hours() / 24)

	if daysInactive <= e.config.InactivityThresholdDays {
		return 0, ""
	}

	weeksOver := float64(daysInactive-e.config.InactivityThresholdDays) / 7

	decayFactor := 1 - math.Exp(-e.config.InactivityDecayRate*weeksOver)
	decayFactor = math.Min(decayFactor, e.config.MaxInactivityDecay)

	decayAmount := currentScore * decayFactor

	reason := fmt.Sprintf("Inactive for %d days (decay: %.1f%%)", daysInactive, decayFactor*100)

	return decayAmount, reason
}

// DocumentExpiryDecay computes decay from expired documents.
// Each expired document contributes a fixed fraction of the current
// score. The total is NOT capped and accumulates linearly with the
// expired-document count, so with enough expired documents the decay
// can exceed the score itself. Callers clamp the resulting score at 0.
func (e *Engine) DocumentExpiryDecay(documents []Document, currentScore float64) (float64, []ExpiredDocument) {
	now := e.now()
	var totalDecay float64
	var expired []ExpiredDocument

	for _, doc := range documents {
		if doc.ExpiryDate == nil {
			continue
		}
		if doc.ExpiryDate.Before(now) {
			decay := currentScore * e.config.DocExpiryDecay
			totalDecay += decay
			expired = append(expired, ExpiredDocument{
				DocumentType: doc.Type,
				ExpiredAt:    *doc.ExpiryDate,
				DecayApplied: decay,
			})
		}
	}

	return totalDecay, expired
}

// EventDecay applies decay for a specific negative event.
// Severity scales the base rate; callers are expected to pass values
// in the 0.5-2.0 range but the engine does not enforce it.
// Returns the new score (floored at 0) and the decay amount.
func (e *Engine) EventDecay(reason string, currentScore float64, severity float64) (float64, float64) {
	var baseDecay float64
	switch reason {
	case ReasonNegativeReview:
		baseDecay = e.config.NegativeReviewDecay
	case ReasonReportReceived:
		baseDecay = e.config.ReportDecay
	case ReasonSubscriptionLapse:
		baseDecay = e.config.SubscriptionLapseDecay
	case ReasonFailedVerification:
		baseDecay = e.config.FailedVerificationDecay
	default:
		baseDecay = e.config.DefaultEventDecay
	}

	decayAmount := currentScore * baseDecay * severity
	newScore := math.Max(0, currentScore-decayAmount)

	return newScore, decayAmount
}

// Recovery computes bounded score restoration from positive behavior.
// Recovery never exceeds the weekly cap nor the gap back to the
// pre-decay base score.
func (e *Engine) Recovery(currentScore, baseScore float64, positiveEvents, activeWeeks int) (float64, string) {
	if currentScore >= baseScore {
		return 0, "No recovery needed"
	}

	fromReviews := float64(positiveEvents) * e.config.PositiveReviewRecovery * baseScore
	fromActivity := float64(activeWeeks) * e.config.ActivityRecoveryRate * baseScore

	totalRecovery := fromReviews + fromActivity

	maxRecovery := e.config.MaxRecoveryPerWeek * baseScore
	totalRecovery = math.Min(totalRecovery, maxRecovery)

	maxPossible := baseScore - currentScore
	totalRecovery = math.Min(totalRecovery, maxPossible)

	reason := fmt.Sprintf("Recovery: %d positive events, %d active weeks", positiveEvents, activeWeeks)

	return totalRecovery, reason
}

// Forecast projects score decay over the coming weeks assuming
// continued inactivity. Each week's decay is computed against the
// original last-activity timestamp rather than a rolling one, which
// yields a conservative per-week estimate.
func (e *Engine) Forecast(currentScore float64, lastActivity time.Time, weeksAhead int) []WeekProjection {
	forecast := make([]WeekProjection, 0, weeksAhead)
	score := currentScore
	now := e.now()

	for week := 1; week <= weeksAhead; week++ {
		projectedDate := now.Add(time.Duration(week) * 7 * 24 * time.Hour)

		decay, reason := e.InactivityDecay(lastActivity, score)

		projectedScore := score - decay
		if reason == "" {
			reason = "No decay"
		}

		forecast = append(forecast, WeekProjection{
			Week:           week,
			Date:           projectedDate,
			ProjectedScore: math.Max(0, projectedScore),
			Decay:          decay,
			Reason:         reason,
		})

		score = projectedScore
	}

	return forecast
}
