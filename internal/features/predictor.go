package features

import (
	"fmt"
	"math"
	"time"
)

// Risk levels ordered by probability.
const (
	RiskMinimal  = "minimal"
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// RiskFactor describes one contributing risk signal.
type RiskFactor struct {
	Factor      string `json:"factor"`
	Description string `json:"description"`
	Weight      string `json:"weight"` // low, medium, high
}

// PredictionResult is the fraud probability output for one subject.
type PredictionResult struct {
	Probability float64      `json:"probability"`
	IsFraud     bool         `json:"isFraud"`
	RiskLevel   string       `json:"riskLevel"`
	Factors     []RiskFactor `json:"factors"`
	Timestamp   time.Time    `json:"timestamp"`
}

// RecommendedAction maps a risk level to an operational response.
type RecommendedAction struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	AutoExecute bool   `json:"autoExecute"`
}

// Predictor computes fraud probability from a feature vector using an
// additive rule model.
type Predictor struct {
	threshold float64
	now       func() time.Time
}

// NewPredictor creates a fraud predictor with the default 0.5
// classification threshold.
func NewPredictor() *Predictor {
	return &Predictor{threshold: 0.5, now: time.Now}
}

// WithClock overrides the predictor's time source. Used in tests.
func (p *Predictor) WithClock(now func() time.Time) *Predictor {
	p.now = now
	return p
}

// Predict computes fraud probability, risk level and contributing
// factors for a feature vector.
func (p *Predictor) Predict(features Vector) PredictionResult {
	probability := p.probability(features)

	return PredictionResult{
		Probability: probability,
		IsFraud:     probability >= p.threshold,
		RiskLevel:   RiskLevelFor(probability),
		Factors:     p.riskFactors(features),
		Timestamp:   p.now(),
	}
}

// probability is an additive rule model over the feature vector,
// capped at 1.0.
func (p *Predictor) probability(features Vector) float64 {
	prob := 0.0

	if features.Get("is_new_account", 0) > 0 {
		prob += 0.15
	}
	if features.Get("verification_level", 0) == 0 {
		prob += 0.15
	}

	prob += math.Min(features.Get("scam_flags", 0)*0.15, 0.3)
	prob += math.Min(features.Get("report_count", 0)*0.1, 0.2)

	if features.Get("activity_velocity", 0) > 10 {
		prob += 0.1
	}
	if features.Get("response_rate", 1) < 0.3 {
		prob += 0.1
	}

	prob += features.Get("risk_score_base", 0) * 0.2

	return math.Min(prob, 1.0)
}

// RiskLevelFor maps a probability to a risk level label.
func RiskLevelFor(probability float64) string {
	switch {
	case probability >= 0.8:
		return RiskCritical
	case probability >= 0.6:
		return RiskHigh
	case probability >= 0.4:
		return RiskMedium
	case probability >= 0.2:
		return RiskLow
	default:
		return RiskMinimal
	}
}

// riskFactors identifies the signals that contributed to the score.
func (p *Predictor) riskFactors(features Vector) []RiskFactor {
	factors := make([]RiskFactor, 0, 5)

	if features.Get("is_new_account", 0) > 0 {
		factors = append(factors, RiskFactor{
			Factor:      "new_account",
			Description: "Account created recently",
			Weight:      "medium",
		})
	}
	if features.Get("verification_level", 0) == 0 {
		factors = append(factors, RiskFactor{
			Factor:      "unverified",
			Description: "No identity verification completed",
			Weight:      "high",
		})
	}
	if flags := features.Get("scam_flags", 0); flags > 0 {
		factors = append(factors, RiskFactor{
			Factor:      "scam_flags",
			Description: fmt.Sprintf("%.0f scam language detections", flags),
			Weight:      "high",
		})
	}
	if reports := features.Get("report_count", 0); reports > 0 {
		factors = append(factors, RiskFactor{
			Factor:      "reports",
			Description: fmt.Sprintf("Reported by %.0f users", reports),
			Weight:      "high",
		})
	}
	if features.Get("activity_velocity", 0) > 10 {
		factors = append(factors, RiskFactor{
			Factor:      "high_activity",
			Description: "Unusually high activity volume",
			Weight:      "medium",
		})
	}

	return factors
}

// Action returns the recommended operational response for a risk
// level.
func Action(riskLevel string) RecommendedAction {
	switch riskLevel {
	case RiskCritical:
		return RecommendedAction{
			Action:      "block",
			Description: "Immediately suspend account for review",
			AutoExecute: true,
		}
	case RiskHigh:
		return RecommendedAction{
			Action:      "restrict",
			Description: "Restrict messaging and transactions",
			AutoExecute: true,
		}
	case RiskMedium:
		return RecommendedAction{
			Action:      "monitor",
			Description: "Flag for enhanced monitoring",
			AutoExecute: false,
		}
	case RiskLow:
		return RecommendedAction{
			Action:      "watch",
			Description: "Add to watchlist",
			AutoExecute: false,
		}
	default:
		return RecommendedAction{
			Action:      "none",
			Description: "No action required",
			AutoExecute: false,
		}
	}
}
