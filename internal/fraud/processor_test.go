package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/features"
)

func TestProcessor(t *testing.T) {
	proc := NewProcessor()
	ctx := context.Background()

	t.Run("AllPass", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-001",
			TraceID:   "trace-001",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-2", Score: 0.2, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-3", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusNoAlert {
			t.Errorf("expected NALT, got %s", eval.Status)
		}
		if eval.Score > proc.AlertThreshold {
			t.Errorf("score %.2f should be below threshold %.2f", eval.Score, proc.AlertThreshold)
		}
		if eval.TenantID != "tenant-001" {
			t.Errorf("expected tenantID 'tenant-001', got '%s'", eval.TenantID)
		}
		if eval.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", eval.Metadata.TraceID)
		}
	})

	t.Run("CriticalFailure", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-002",
			TraceID:   "trace-002",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-2", Score: 1.0, SubRuleRef: domain.RuleOutcomeFail, Weight: 1.0},
				{RuleID: "rule-3", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusAlert {
			t.Errorf("expected ALRT for critical failure, got %s", eval.Status)
		}
	})

	t.Run("HighAggregateScore", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-003",
			TraceID:   "trace-003",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.8, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
				{RuleID: "rule-2", Score: 0.9, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
				{RuleID: "rule-3", Score: 0.7, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
			},
		}

		eval := proc.Process(ctx, input)

		// Average is 0.8, which is above 0.7 threshold
		if eval.Status != domain.StatusAlert {
			t.Errorf("expected ALRT for high score, got %s", eval.Status)
		}
	})

	t.Run("WeightedScoring", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-004",
			TraceID:   "trace-004",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 1.0, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
				{RuleID: "rule-2", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 5.0},
			},
		}

		eval := proc.Process(ctx, input)

		// Weighted: (1.0*1.0 + 0.1*5.0) / (1.0 + 5.0) = 1.5/6 = 0.25
		if eval.Score > 0.3 {
			t.Errorf("expected weighted score ~0.25, got %.2f", eval.Score)
		}
		if eval.Status != domain.StatusNoAlert {
			t.Errorf("expected NALT with weighted scoring, got %s", eval.Status)
		}
	})

	t.Run("EmptyResults", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:    "tenant-001",
			SubjectID:   "user-005",
			TraceID:     "trace-005",
			StartTime:   time.Now(),
			RuleResults: []domain.RuleResult{},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusNoAlert {
			t.Errorf("expected NALT for empty results, got %s", eval.Status)
		}
		if eval.Score != 0 {
			t.Errorf("expected score 0, got %.2f", eval.Score)
		}
	})

	t.Run("MetadataPopulated", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-006",
			TraceID:   "trace-006",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-2", Score: 0.2, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Metadata.TraceID != "trace-006" {
			t.Error("missing traceID in metadata")
		}
		if eval.Metadata.RulesEvaluated != 2 {
			t.Errorf("expected 2 rules evaluated, got %d", eval.Metadata.RulesEvaluated)
		}
		if eval.Metadata.EngineVersion == "" {
			t.Error("missing engine version")
		}
		if eval.Metadata.TotalMs < 0 {
			t.Error("TotalMs should be non-negative")
		}
	})

	t.Run("SyntheticProfileResult", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-007",
			TraceID:   "trace-007",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.5, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
			},
		}

		eval := proc.Process(ctx, input)

		if len(eval.ProfileResults) != 1 {
			t.Fatalf("expected 1 profile result, got %d", len(eval.ProfileResults))
		}

		pr := eval.ProfileResults[0]
		if pr.ProfileID == "" {
			t.Error("missing profile ID")
		}
		if len(pr.Rules) != 1 {
			t.Errorf("expected 1 rule in profile, got %d", len(pr.Rules))
		}
	})

	t.Run("ProfileTriggeredAlerts", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-008",
			TraceID:   "trace-008",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.8, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
			},
			ProfileResults: []domain.ProfileResult{
				{ProfileID: "profile-1", ProfileName: "Advance Fee Scam", Score: 0.85, Threshold: 0.6, Triggered: true},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusAlert {
			t.Errorf("expected ALRT when profile triggered, got %s", eval.Status)
		}
		if eval.Score != 0.85 {
			t.Errorf("expected score to be max profile score 0.85, got %.2f", eval.Score)
		}
	})

	t.Run("ProfileNotTriggered", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-009",
			TraceID:   "trace-009",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.3, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
			ProfileResults: []domain.ProfileResult{
				{ProfileID: "profile-1", Score: 0.4, Threshold: 0.6, Triggered: false},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusNoAlert {
			t.Errorf("expected NALT when no profile triggered, got %s", eval.Status)
		}
	})

	t.Run("CriticalFailureOverridesProfile", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-010",
			TraceID:   "trace-010",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 1.0, SubRuleRef: domain.RuleOutcomeFail, Weight: 1.0},
			},
			ProfileResults: []domain.ProfileResult{
				{ProfileID: "profile-1", Score: 0.3, Threshold: 0.6, Triggered: false},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Status != domain.StatusAlert {
			t.Errorf("expected ALRT on critical failure, got %s", eval.Status)
		}
	})

	t.Run("PredictionAttached", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "user-011",
			TraceID:   "trace-011",
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", Score: 0.1, SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
			Prediction: &features.PredictionResult{
				Probability: 0.83,
				RiskLevel:   features.RiskCritical,
				Factors: []features.RiskFactor{
					{Factor: "new_account"},
					{Factor: "unverified"},
				},
			},
		}

		eval := proc.Process(ctx, input)

		if eval.Probability != 0.83 {
			t.Errorf("expected probability 0.83, got %.2f", eval.Probability)
		}
		if eval.RiskLevel != features.RiskCritical {
			t.Errorf("expected critical risk level, got %s", eval.RiskLevel)
		}
		if len(eval.Factors) != 2 || eval.Factors[0] != "new_account" {
			t.Errorf("unexpected factors: %v", eval.Factors)
		}
	})
}

func TestShouldAlert(t *testing.T) {
	alertEval := &domain.FraudEvaluation{Status: domain.StatusAlert}
	passEval := &domain.FraudEvaluation{Status: domain.StatusNoAlert}

	if !ShouldAlert(alertEval) {
		t.Error("expected true for ALRT")
	}
	if ShouldAlert(passEval) {
		t.Error("expected false for NALT")
	}
}

func TestGetReasons(t *testing.T) {
	eval := &domain.FraudEvaluation{
		RuleResults: []domain.RuleResult{
			{SubRuleRef: domain.RuleOutcomePass, Reason: "All good"},
			{SubRuleRef: domain.RuleOutcomeFail, Reason: "Velocity exceeded"},
			{SubRuleRef: domain.RuleOutcomeReview, Reason: "Suspicious language"},
			{SubRuleRef: domain.RuleOutcomePass, Reason: "Normal"},
		},
	}

	reasons := GetReasons(eval)

	if len(reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %d", len(reasons))
	}

	if reasons[0] != "Velocity exceeded" {
		t.Errorf("expected 'Velocity exceeded', got '%s'", reasons[0])
	}
	if reasons[1] != "Suspicious language" {
		t.Errorf("expected 'Suspicious language', got '%s'", reasons[1])
	}
}

func TestCustomThreshold(t *testing.T) {
	proc := &Processor{
		AlertThreshold:     0.5,
		UseWeightedScoring: true,
	}

	ctx := context.Background()
	input := &DecisionInput{
		TenantID:  "tenant-001",
		SubjectID: "user-001",
		TraceID:   "trace-001",
		StartTime: time.Now(),
		RuleResults: []domain.RuleResult{
			{RuleID: "rule-1", Score: 0.6, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
		},
	}

	eval := proc.Process(ctx, input)

	// 0.6 > 0.5 threshold, should alert
	if eval.Status != domain.StatusAlert {
		t.Errorf("expected ALRT with 0.5 threshold, got %s", eval.Status)
	}
}

func TestUnweightedScoring(t *testing.T) {
	proc := &Processor{
		AlertThreshold:     0.7,
		UseWeightedScoring: false,
	}

	ctx := context.Background()
	input := &DecisionInput{
		TenantID:  "tenant-001",
		SubjectID: "user-001",
		TraceID:   "trace-001",
		StartTime: time.Now(),
		RuleResults: []domain.RuleResult{
			{RuleID: "rule-1", Score: 0.4, SubRuleRef: domain.RuleOutcomeReview, Weight: 10.0},
			{RuleID: "rule-2", Score: 0.4, SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0},
		},
	}

	eval := proc.Process(ctx, input)

	// Unweighted: (0.4 + 0.4) / 2 = 0.4
	if eval.Score > 0.5 {
		t.Errorf("expected unweighted score ~0.4, got %.2f", eval.Score)
	}
}
