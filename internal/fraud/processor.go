// Package fraud aggregates rule, profile and model results into a
// final fraud decision for a subject.
package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/features"
)

// Processor aggregates rule results and produces a final decision.
type Processor struct {
	// Threshold above which a subject is flagged as ALERT
	AlertThreshold float64

	// Weight configuration for rule aggregation
	UseWeightedScoring bool
}

// NewProcessor creates a new decision processor with default settings.
func NewProcessor() *Processor {
	return &Processor{
		AlertThreshold:     0.7,
		UseWeightedScoring: true,
	}
}

// DecisionInput contains all data needed for a decision.
type DecisionInput struct {
	TenantID       string
	SubjectID      string
	TraceID        string
	RuleResults    []domain.RuleResult
	ProfileResults []domain.ProfileResult // From ProfileEngine evaluation
	Prediction     *features.PredictionResult
	StartTime      time.Time
}

// Process evaluates rule results and produces a final decision.
func (p *Processor) Process(ctx context.Context, input *DecisionInput) *domain.FraudEvaluation {
	start := time.Now()

	eval := &domain.FraudEvaluation{
		ID:          uuid.New().String(),
		TenantID:    input.TenantID,
		SubjectID:   input.SubjectID,
		Timestamp:   time.Now().UTC(),
		RuleResults: input.RuleResults,
	}

	// Aggregate rule results
	aggResult := p.aggregate(input.RuleResults)

	// Use profile results if provided by ProfileEngine
	if len(input.ProfileResults) > 0 {
		eval.ProfileResults = input.ProfileResults

		// Check if any profile triggered
		anyProfileTriggered := false
		maxProfileScore := 0.0
		for _, pr := range input.ProfileResults {
			if pr.Triggered {
				anyProfileTriggered = true
			}
			if pr.Score > maxProfileScore {
				maxProfileScore = pr.Score
			}
		}

		// Decision based on profile results
		if anyProfileTriggered || aggResult.HasCriticalFailure {
			eval.Status = domain.StatusAlert
		} else {
			eval.Status = domain.StatusNoAlert
		}

		// Use highest profile score as the evaluation score
		eval.Score = maxProfileScore
	} else {
		// Fallback: single aggregated score
		if aggResult.HasCriticalFailure || aggResult.AggregateScore >= p.AlertThreshold {
			eval.Status = domain.StatusAlert
		} else {
			eval.Status = domain.StatusNoAlert
		}

		eval.Score = aggResult.AggregateScore

		// Build a synthetic profile result covering all rules
		eval.ProfileResults = p.buildProfileResults(input.RuleResults, aggResult)
	}

	// Attach model probability and contributing factors
	if input.Prediction != nil {
		eval.Probability = input.Prediction.Probability
		eval.RiskLevel = input.Prediction.RiskLevel
		for _, f := range input.Prediction.Factors {
			eval.Factors = append(eval.Factors, f.Factor)
		}
	} else {
		eval.RiskLevel = features.RiskLevelFor(eval.Score)
	}

	// Populate metadata
	decisionMs := time.Since(start).Milliseconds()
	totalMs := time.Since(input.StartTime).Milliseconds()

	eval.Metadata = domain.EvaluationMetadata{
		TraceID:           input.TraceID,
		RulesEvaluated:    len(input.RuleResults),
		ProfilesEvaluated: len(input.ProfileResults),
		DecisionMs:        decisionMs,
		TotalMs:           totalMs,
		EngineVersion:     "trusthub-1.0",
	}

	return eval
}

// AggregateResult holds the aggregated scoring results.
type AggregateResult struct {
	AggregateScore     float64
	TotalWeight        float64
	RulesTriggered     int
	HasCriticalFailure bool
}

// aggregate computes the weighted aggregate score from rule results.
func (p *Processor) aggregate(results []domain.RuleResult) *AggregateResult {
	if len(results) == 0 {
		return &AggregateResult{}
	}

	agg := &AggregateResult{}

	for _, r := range results {
		weight := r.Weight
		if weight <= 0 {
			weight = 1.0
		}

		// Check for critical failures
		if r.SubRuleRef == domain.RuleOutcomeFail {
			agg.HasCriticalFailure = true
			agg.RulesTriggered++
		} else if r.SubRuleRef == domain.RuleOutcomeReview {
			agg.RulesTriggered++
		}

		if p.UseWeightedScoring {
			agg.AggregateScore += r.Score * weight
			agg.TotalWeight += weight
		} else {
			agg.AggregateScore += r.Score
			agg.TotalWeight += 1.0
		}
	}

	// Normalize score
	if agg.TotalWeight > 0 {
		agg.AggregateScore = agg.AggregateScore / agg.TotalWeight
	}

	return agg
}

// buildProfileResults groups rules into a single catch-all profile
// when no configured profiles were evaluated.
func (p *Processor) buildProfileResults(rules []domain.RuleResult, agg *AggregateResult) []domain.ProfileResult {
	if len(rules) == 0 {
		return nil
	}

	return []domain.ProfileResult{
		{
			ProfileID:   "fraud-detection-001",
			ProfileName: "Fraud Detection",
			Score:       agg.AggregateScore,
			Threshold:   p.AlertThreshold,
			Triggered:   agg.AggregateScore >= p.AlertThreshold || agg.HasCriticalFailure,
			Rules:       rules,
		},
	}
}

// ShouldAlert returns true if the evaluation should trigger an alert.
func ShouldAlert(eval *domain.FraudEvaluation) bool {
	return eval.Status == domain.StatusAlert
}

// GetReasons extracts human-readable reasons from an evaluation.
func GetReasons(eval *domain.FraudEvaluation) []string {
	var reasons []string
	for _, r := range eval.RuleResults {
		if r.SubRuleRef == domain.RuleOutcomeFail || r.SubRuleRef == domain.RuleOutcomeReview {
			if r.Reason != "" {
				reasons = append(reasons, r.Reason)
			}
		}
	}
	return reasons
}
