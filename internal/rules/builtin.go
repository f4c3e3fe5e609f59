package rules

import "github.com/globaltrusthub/trusthub/internal/domain"

func f(v float64) *float64 { return &v }

// DefaultRules returns the starter fraud rule set loaded when the
// database has no tenant-specific rules configured. Tenants override
// these via the rules API.
func DefaultRules() []*domain.RuleConfig {
	passFailBands := func(failAt float64, reason string) []domain.RuleBand {
		return []domain.RuleBand{
			{LowerLimit: f(0), UpperLimit: f(failAt), SubRuleRef: domain.RuleOutcomePass, Reason: "below threshold"},
			{LowerLimit: f(failAt), SubRuleRef: domain.RuleOutcomeFail, Reason: reason},
		}
	}

	return []*domain.RuleConfig{
		{
			ID:          "new-account-001",
			Name:        "New Account",
			Description: "Flags accounts created within the last week",
			Version:     "1.0.0",
			Expression:  "is_new_account",
			Bands:       passFailBands(1.0, "account created recently"),
			Weight:      0.2,
			Enabled:     true,
		},
		{
			ID:          "low-verification-001",
			Name:        "Low Verification",
			Description: "Flags subjects with no completed verification",
			Version:     "1.0.0",
			Expression:  "verification_level == 0.0",
			Bands:       passFailBands(1.0, "no identity verification completed"),
			Weight:      0.15,
			Enabled:     true,
		},
		{
			ID:          "scam-language-001",
			Name:        "Scam Language",
			Description: "Scores recent message content for scam patterns",
			Version:     "1.0.0",
			Expression:  "scam_language_score",
			Bands: []domain.RuleBand{
				{LowerLimit: f(0), UpperLimit: f(0.3), SubRuleRef: domain.RuleOutcomePass, Reason: "no significant scam language"},
				{LowerLimit: f(0.3), UpperLimit: f(0.6), SubRuleRef: domain.RuleOutcomeReview, Reason: "suspicious language detected"},
				{LowerLimit: f(0.6), SubRuleRef: domain.RuleOutcomeFail, Reason: "strong scam language detected"},
			},
			Weight:  0.4,
			Enabled: true,
		},
		{
			ID:          "high-velocity-001",
			Name:        "High Activity Velocity",
			Description: "Flags unusually high event volume",
			Version:     "1.0.0",
			Expression:  "activity_velocity > 10.0 || velocity_count > 100",
			Bands:       passFailBands(1.0, "unusually high activity volume"),
			Weight:      0.25,
			Enabled:     true,
		},
		{
			ID:          "reported-subject-001",
			Name:        "Reported Subject",
			Description: "Flags subjects reported by other users",
			Version:     "1.0.0",
			Expression:  "report_count > 0.0",
			Bands:       passFailBands(1.0, "reported by other users"),
			Weight:      0.25,
			Enabled:     true,
		},
	}
}

// DefaultProfiles returns the starter risk profiles evaluated over
// the default rule set.
func DefaultProfiles() []*domain.RiskProfile {
	return []*domain.RiskProfile{
		{
			ID:             "advance-fee-scam",
			Name:           "Advance Fee Scam",
			Description:    "New low-verification accounts pushing payment language",
			Version:        "1.0.0",
			AlertThreshold: 0.6,
			Enabled:        true,
			Rules: []domain.ProfileRuleWeight{
				{RuleID: "scam-language-001", Weight: 0.4},
				{RuleID: "new-account-001", Weight: 0.2},
				{RuleID: "low-verification-001", Weight: 0.15},
				{RuleID: "reported-subject-001", Weight: 0.25},
			},
		},
		{
			ID:             "mass-messaging",
			Name:           "Mass Messaging",
			Description:    "High-volume outreach from unverified accounts",
			Version:        "1.0.0",
			AlertThreshold: 0.5,
			Enabled:        true,
			Rules: []domain.ProfileRuleWeight{
				{RuleID: "high-velocity-001", Weight: 0.5},
				{RuleID: "low-verification-001", Weight: 0.25},
				{RuleID: "new-account-001", Weight: 0.25},
			},
		},
	}
}
