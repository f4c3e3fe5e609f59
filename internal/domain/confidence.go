package domain

import "time"

// Verification decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionReview  = "review"
)

// DocumentSignals carries the raw analysis outputs for one document.
// The confidence scorer combines these into an overall score and decision.
type DocumentSignals struct {
	DocumentType string `json:"documentType"`

	// OCR extraction quality
	OCRConfidence float64 `json:"ocrConfidence"` // 0-1
	FieldsTotal   int     `json:"fieldsTotal"`
	FieldsFilled  int     `json:"fieldsFilled"`

	// Forgery analysis
	ForgeryConfidence float64 `json:"forgeryConfidence"` // 0-1, high = likely forged
	ForgeryDetected   bool    `json:"forgeryDetected"`

	// Field validation
	ValidationPassed bool `json:"validationPassed"`

	// Optional cross-reference match score against known records
	CrossReferenceScore *float64 `json:"crossReferenceScore,omitempty"`
}

// ConfidenceResult is the output of document confidence scoring.
type ConfidenceResult struct {
	OverallScore    float64            `json:"overallScore"` // 0-1
	ComponentScores map[string]float64 `json:"componentScores"`
	Decision        string             `json:"decision"`

	RequiresManualReview bool `json:"requiresManualReview"`
	AutoApproved         bool `json:"autoApproved"`
	AutoRejected         bool `json:"autoRejected"`

	Timestamp time.Time `json:"timestamp"`
}

// DocumentSetResult is the aggregated decision for a set of documents.
// The weakest document dominates: any reject rejects the set, any review
// forces review, and the reported score is the minimum individual score.
type DocumentSetResult struct {
	OverallScore      float64            `json:"overallScore"`
	Decision          string             `json:"decision"`
	DocumentsAnalyzed int                `json:"documentsAnalyzed"`
	IndividualScores  []ConfidenceResult `json:"individualScores,omitempty"`
}
