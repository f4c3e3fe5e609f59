package domain

import (
	"time"
)

// TrustLevel is the discrete label derived from a trust score.
type TrustLevel string

// Trust levels, ordered lowest to highest.
const (
	LevelUnverified TrustLevel = "unverified"
	LevelBronze     TrustLevel = "bronze"
	LevelSilver     TrustLevel = "silver"
	LevelGold       TrustLevel = "gold"
	LevelPlatinum   TrustLevel = "platinum"
)

// ScoreEvaluation is the stored result of a trust score computation.
type ScoreEvaluation struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	SubjectID string     `json:"subjectId"`
	Score     float64    `json:"score"` // 0-1000
	Level     TrustLevel `json:"level"`
	Timestamp time.Time  `json:"timestamp"`

	// Per-component weighted contributions to the total
	Breakdown map[string]float64 `json:"breakdown"`

	// Raw component scores before weighting (0-200 each)
	Components map[string]float64 `json:"components"`

	Tips []string `json:"tips,omitempty"`

	Metadata EvaluationMetadata `json:"metadata"`
}

// FraudEvaluation is the stored result of a fraud rule evaluation.
type FraudEvaluation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	SubjectID string    `json:"subjectId"`
	Status    string    `json:"status"` // "ALRT" or "NALT"
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`

	// Individual rule results
	RuleResults []RuleResult `json:"ruleResults"`

	// Risk profile results (if applicable)
	ProfileResults []ProfileResult `json:"profileResults,omitempty"`

	// Model-based fraud probability and its contributing factors
	Probability float64  `json:"probability"`
	RiskLevel   string   `json:"riskLevel"`
	Factors     []string `json:"factors,omitempty"`

	Metadata EvaluationMetadata `json:"metadata"`
}

// ProfileResult is the aggregated result of rules for a risk profile.
type ProfileResult struct {
	ProfileID     string             `json:"profileId"`
	ProfileName   string             `json:"profileName"`
	Score         float64            `json:"score"`
	Threshold     float64            `json:"threshold"`
	Triggered     bool               `json:"triggered"`
	Rules         []RuleResult       `json:"rules"`
	Contributions []RuleContribution `json:"contributions,omitempty"`
	ProcessMs     int64              `json:"processMs,omitempty"`
}

// EvaluationMetadata contains processing information.
type EvaluationMetadata struct {
	TraceID           string `json:"traceId"`
	IngestMs          int64  `json:"ingestMs"`
	RulesMs           int64  `json:"rulesMs"`
	DecisionMs        int64  `json:"decisionMs"`
	TotalMs           int64  `json:"totalMs"`
	RulesEvaluated    int    `json:"rulesEvaluated"`
	ProfilesEvaluated int    `json:"profilesEvaluated"`
	EngineVersion     string `json:"engineVersion"`
}

// Fraud evaluation status constants.
const (
	StatusAlert   = "ALRT" // suspicious subject, alert raised
	StatusNoAlert = "NALT" // subject passed
)
