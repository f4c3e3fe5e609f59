package domain

import "time"

// RiskProfile groups multiple fraud rules with weights to calculate a
// composite risk score for a scam pattern.
// Example: "Advance Fee Scam" combines NewAccount (0.2) + PaymentLanguage (0.4)
// + BulkMessaging (0.25) + LowVerification (0.15).
type RiskProfile struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Rules contains the list of rules with their weights
	Rules []ProfileRuleWeight `json:"rules"`

	// AlertThreshold is the minimum score to trigger an alert (0.0-1.0)
	AlertThreshold float64 `json:"alertThreshold"`

	// Whether profile is active
	Enabled bool `json:"enabled"`

	// Audit timestamps
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ProfileRuleWeight defines a rule and its weight within a risk profile.
type ProfileRuleWeight struct {
	RuleID string  `json:"ruleId"`
	Weight float64 `json:"weight"` // 0.0 to 1.0
}

// RuleContribution shows how a single rule contributed to a profile score.
type RuleContribution struct {
	RuleID       string  `json:"ruleId"`
	RuleScore    float64 `json:"ruleScore"`    // Original rule score (0.0-1.0)
	Weight       float64 `json:"weight"`       // Weight in profile
	Contribution float64 `json:"contribution"` // ruleScore * weight
}
