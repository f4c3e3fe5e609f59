package domain

import "time"

// AlertSeverity orders alerts for triage.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType classifies what triggered an alert.
type AlertType string

const (
	AlertScamMessage       AlertType = "scam_message"
	AlertSuspiciousPattern AlertType = "suspicious_pattern"
	AlertRepeatOffender    AlertType = "repeat_offender"
	AlertMassMessaging     AlertType = "mass_messaging"
	AlertFakeDocument      AlertType = "fake_document"
	AlertImpersonation     AlertType = "impersonation"
)

// Alert records a detected risk event for a subject.
type Alert struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	SubjectID string        `json:"subjectId"`
	TargetID  string        `json:"targetId,omitempty"`
	Score     float64       `json:"score"`

	Details map[string]interface{} `json:"details,omitempty"`

	CreatedAt       time.Time  `json:"createdAt"`
	Resolved        bool       `json:"resolved"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy      string     `json:"resolvedBy,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
}

// AlertStatistics aggregates counts across the alert registry.
type AlertStatistics struct {
	Total           int            `json:"total"`
	Resolved        int            `json:"resolved"`
	Pending         int            `json:"pending"`
	BySeverity      map[string]int `json:"bySeverity"`
	ByType          map[string]int `json:"byType"`
	RepeatOffenders int            `json:"repeatOffenders"`
}
