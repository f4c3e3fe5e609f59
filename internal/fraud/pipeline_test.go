package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/features"
	"github.com/globaltrusthub/trusthub/internal/rules"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	engine, err := rules.NewEngine(nil, 4)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if err := engine.LoadRules(rules.DefaultRules()); err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}

	profiles := rules.NewProfileEngine()
	profiles.LoadProfiles(rules.DefaultProfiles())

	return NewPipeline(engine, profiles)
}

func TestPipeline_Evaluate(t *testing.T) {
	pipeline := newTestPipeline(t)
	ctx := context.Background()

	t.Run("Risky subject alerts", func(t *testing.T) {
		eval, err := pipeline.Evaluate(ctx, &EvaluateRequest{
			TenantID:  "tenant-001",
			SubjectID: "scammer-1",
			Input: features.Input{
				Account: features.Account{
					ID:        "scammer-1",
					CreatedAt: time.Now().Add(-2 * 24 * time.Hour),
				},
				Behavior: features.Behavior{
					ReportCount: 3,
					ScamFlags:   2,
				},
			},
			Messages: []string{
				"Act now! Guaranteed returns, send payment via gift card to claim your prize.",
			},
		})
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}

		if eval.Status != domain.StatusAlert {
			t.Errorf("expected ALRT, got %s (score %.2f)", eval.Status, eval.Score)
		}
		if eval.Probability <= 0 {
			t.Error("expected positive fraud probability")
		}
		if len(eval.Factors) == 0 {
			t.Error("expected contributing factors")
		}
		if eval.Metadata.RulesEvaluated != 5 {
			t.Errorf("expected 5 rules evaluated, got %d", eval.Metadata.RulesEvaluated)
		}
		if eval.Metadata.ProfilesEvaluated != 2 {
			t.Errorf("expected 2 profiles evaluated, got %d", eval.Metadata.ProfilesEvaluated)
		}
	})

	t.Run("Established subject passes", func(t *testing.T) {
		eval, err := pipeline.Evaluate(ctx, &EvaluateRequest{
			TenantID:  "tenant-001",
			SubjectID: "regular-1",
			Input: features.Input{
				Account: features.Account{
					ID:                  "regular-1",
					CreatedAt:           time.Now().Add(-400 * 24 * time.Hour),
					VerificationLevel:   3,
					ProfileCompleteness: 0.9,
					EmailVerified:       true,
					PhoneVerified:       true,
				},
				Behavior: features.Behavior{
					ResponseRate: 0.9,
				},
			},
			Messages: []string{"Thanks, the delivery arrived on time."},
		})
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}

		if eval.Status != domain.StatusNoAlert {
			t.Errorf("expected NALT, got %s (score %.2f)", eval.Status, eval.Score)
		}
		if eval.RiskLevel == features.RiskCritical || eval.RiskLevel == features.RiskHigh {
			t.Errorf("unexpected risk level %s", eval.RiskLevel)
		}
	})
}

func TestPipeline_ScamLanguageScore(t *testing.T) {
	pipeline := newTestPipeline(t)

	if score := pipeline.scamLanguageScore(nil); score != 0 {
		t.Errorf("expected 0 for no messages, got %v", score)
	}

	score := pipeline.scamLanguageScore([]string{
		"hello there",
		"send payment via western union, act now before it's too late",
	})
	if score <= 0 {
		t.Error("expected positive scam score for scam message")
	}
}
