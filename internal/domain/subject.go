// Package domain defines the core interfaces and types for TrustHub.
package domain

import (
	"time"
)

// VerificationInput holds the verification-depth signals for a subject.
type VerificationInput struct {
	// Verification level (0-3): none, email, phone+address, full KYC
	Level int `json:"level"`

	// Number of documents that passed verification
	DocumentsVerified int `json:"documentsVerified"`

	// Whether identity was confirmed against an official document
	IdentityConfirmed bool `json:"identityConfirmed"`
}

// TransactionInput holds the transaction-history signals for a subject.
type TransactionInput struct {
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	TotalValue  float64 `json:"totalValue"`
	DisputeRate float64 `json:"disputeRate"` // 0-1
}

// ReviewInput holds the review signals for a subject.
type ReviewInput struct {
	Total         int     `json:"total"`
	AverageRating float64 `json:"averageRating"` // 1-5
	Verified      int     `json:"verified"`      // reviews from verified transactions
}

// ActivityInput holds the platform-engagement signals for a subject.
type ActivityInput struct {
	DaysActive          int     `json:"daysActive"`
	LoginFrequency      float64 `json:"loginFrequency"` // logins per week
	ProfileCompleteness float64 `json:"profileCompleteness"`
	ResponseRate        float64 `json:"responseRate"`
}

// BehaviorInput holds the behavior-pattern signals for a subject.
type BehaviorInput struct {
	ReportedCount          int `json:"reportedCount"`
	ScamFlags              int `json:"scamFlags"`
	PositiveInteractions   int `json:"positiveInteractions"`
	CommunityContributions int `json:"communityContributions"`
}

// ScoreRequest is the API request payload for trust score computation.
type ScoreRequest struct {
	SubjectID    string            `json:"subjectId"`
	Verification VerificationInput `json:"verification"`
	Transactions TransactionInput  `json:"transactions"`
	Reviews      ReviewInput       `json:"reviews"`
	Activity     ActivityInput     `json:"activity"`
	Behavior     BehaviorInput     `json:"behavior"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SubjectEvent records an action by a subject. Events feed the velocity
// counters used by fraud rules (e.g. messages sent in the last hour).
type SubjectEvent struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	SubjectID string    `json:"subjectId"`
	Type      string    `json:"type"` // "score_request", "message", "document_upload", ...
	Timestamp time.Time `json:"timestamp"`
}

// Common subject event types.
const (
	EventScoreRequest   = "score_request"
	EventMessage        = "message"
	EventDocumentUpload = "document_upload"
)
