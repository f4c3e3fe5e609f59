// Package trust implements the composite trust score calculation.
//
// A trust score is a 0-1000 metric combining five weighted component
// scores: verification depth, transaction history, review quality,
// platform activity, and behavior patterns. Each component is bounded
// to [0, 200] before weighting.
package trust

import (
	"math"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// Component names used in breakdown maps.
const (
	ComponentVerification = "verification"
	ComponentTransactions = "transactions"
	ComponentReviews      = "reviews"
	ComponentActivity     = "activity"
	ComponentBehavior     = "behavior"
)

// MaxComponentScore is the upper bound of each component before weighting.
const MaxComponentScore = 200.0

// MaxTotalScore is the upper bound of the composite score.
const MaxTotalScore = 1000.0

// componentWeights sum to 1.0. The weighted component sum lands in
// [0, 200] and is rescaled by 5 to the 0-1000 range.
var componentWeights = map[string]float64{
	ComponentVerification: 0.25,
	ComponentTransactions: 0.25,
	ComponentReviews:      0.20,
	ComponentActivity:     0.15,
	ComponentBehavior:     0.15,
}

// levelThresholds maps each trust level to its minimum score.
var levelThresholds = []struct {
	Level     domain.TrustLevel
	Threshold float64
}{
	{domain.LevelPlatinum, 800},
	{domain.LevelGold, 600},
	{domain.LevelSilver, 400},
	{domain.LevelBronze, 200},
	{domain.LevelUnverified, 0},
}

// Calculator computes trust scores from component signals.
// All methods are pure and safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a trust score calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// VerificationScore scores verification depth.
// Base score from verification level (0-3), plus a capped bonus per
// verified document and a flat bonus for confirmed identity.
func (c *Calculator) VerificationScore(in domain.VerificationInput) float64 {
	score := 0.0

	switch in.Level {
	case 1:
		score += 50
	case 2:
		score += 100
	case 3:
		score += 150
	}

	score += math.Min(float64(in.DocumentsVerified)*10, 30)

	if in.IdentityConfirmed {
		score += 20
	}

	return math.Min(score, MaxComponentScore)
}

// TransactionScore scores transaction history.
// Successful transactions build the base, high cumulative value earns
// a tier bonus, and failures and disputes subtract. Floor is 0.
func (c *Calculator) TransactionScore(in domain.TransactionInput) float64 {
	score := math.Min(float64(in.Successful)*5, 100)

	switch {
	case in.TotalValue > 10000:
		score += 30
	case in.TotalValue > 5000:
		score += 20
	case in.TotalValue > 1000:
		score += 10
	}

	score -= float64(in.Failed) * 10

	switch {
	case in.DisputeRate > 0.1:
		score -= 50
	case in.DisputeRate > 0.05:
		score -= 25
	}

	return clampComponent(score)
}

// ReviewScore scores reviews received.
// Review count builds the base, average rating earns a tier bonus,
// and the verified-review ratio adds up to 40 points.
func (c *Calculator) ReviewScore(in domain.ReviewInput) float64 {
	score := math.Min(float64(in.Total)*3, 60)

	switch {
	case in.AverageRating >= 4.5:
		score += 80
	case in.AverageRating >= 4.0:
		score += 60
	case in.AverageRating >= 3.5:
		score += 40
	case in.AverageRating >= 3.0:
		score += 20
	}

	verifiedRatio := float64(in.Verified) / math.Max(float64(in.Total), 1)
	score += verifiedRatio * 40

	return math.Min(score, MaxComponentScore)
}

// ActivityScore scores platform engagement.
func (c *Calculator) ActivityScore(in domain.ActivityInput) float64 {
	score := 0.0

	switch {
	case in.DaysActive > 365:
		score += 40
	case in.DaysActive > 180:
		score += 30
	case in.DaysActive > 90:
		score += 20
	case in.DaysActive > 30:
		score += 10
	}

	score += math.Min(in.LoginFrequency*5, 30)
	score += in.ProfileCompleteness * 50
	score += in.ResponseRate * 50

	return math.Min(score, MaxComponentScore)
}

// BehaviorScore scores behavior patterns.
// Starts at a neutral 100 and moves down for reports and scam flags,
// up for positive interactions and community contributions. Floor is 0.
func (c *Calculator) BehaviorScore(in domain.BehaviorInput) float64 {
	score := 100.0

	score -= float64(in.ReportedCount) * 15
	score -= float64(in.ScamFlags) * 30

	score += math.Min(float64(in.PositiveInteractions)*2, 50)
	score += math.Min(float64(in.CommunityContributions)*5, 50)

	return clampComponent(score)
}

// TotalScore combines the five component scores into a composite
// 0-1000 trust score with a per-component weighted breakdown.
func (c *Calculator) TotalScore(verification, transactions, reviews, activity, behavior float64) (float64, map[string]float64) {
	breakdown := map[string]float64{
		ComponentVerification: verification * componentWeights[ComponentVerification],
		ComponentTransactions: transactions * componentWeights[ComponentTransactions],
		ComponentReviews:      reviews * componentWeights[ComponentReviews],
		ComponentActivity:     activity * componentWeights[ComponentActivity],
		ComponentBehavior:     behavior * componentWeights[ComponentBehavior],
	}

	var total float64
	for _, v := range breakdown {
		total += v
	}

	// Rescale the weighted sum from 0-200 to 0-1000
	total *= 5

	return math.Min(total, MaxTotalScore), breakdown
}

// Score evaluates a full score request: computes all five components,
// aggregates them, and resolves the trust level and improvement tips.
func (c *Calculator) Score(req *domain.ScoreRequest) (float64, domain.TrustLevel, map[string]float64, map[string]float64, []string) {
	components := map[string]float64{
		ComponentVerification: c.VerificationScore(req.Verification),
		ComponentTransactions: c.TransactionScore(req.Transactions),
		ComponentReviews:      c.ReviewScore(req.Reviews),
		ComponentActivity:     c.ActivityScore(req.Activity),
		ComponentBehavior:     c.BehaviorScore(req.Behavior),
	}

	total, breakdown := c.TotalScore(
		components[ComponentVerification],
		components[ComponentTransactions],
		components[ComponentReviews],
		components[ComponentActivity],
		components[ComponentBehavior],
	)

	level := c.LevelFor(total)
	tips := c.ImprovementTips(breakdown, level)

	return total, level, components, breakdown, tips
}

// LevelFor resolves the trust level for a score.
// Levels are a non-decreasing step function of score.
func (c *Calculator) LevelFor(score float64) domain.TrustLevel {
	for _, lt := range levelThresholds {
		if score >= lt.Threshold {
			return lt.Level
		}
	}
	return domain.LevelUnverified
}

// ImprovementTips generates guidance for raising a trust score.
// The weakest weighted component drives the primary tip; the two
// lowest levels get an additional level-specific tip.
func (c *Calculator) ImprovementTips(breakdown map[string]float64, level domain.TrustLevel) []string {
	tips := make([]string, 0, 2)

	weakest := ""
	weakestValue := math.Inf(1)
	// Iterate in a fixed order so ties resolve deterministically
	for _, name := range []string{
		ComponentVerification,
		ComponentTransactions,
		ComponentReviews,
		ComponentActivity,
		ComponentBehavior,
	} {
		if v, ok := breakdown[name]; ok && v < weakestValue {
			weakest = name
			weakestValue = v
		}
	}

	switch weakest {
	case ComponentVerification:
		tips = append(tips, "Complete document verification to boost your score")
	case ComponentTransactions:
		tips = append(tips, "Complete more successful transactions")
	case ComponentReviews:
		tips = append(tips, "Collect reviews from satisfied clients")
	case ComponentActivity:
		tips = append(tips, "Stay active on the platform and complete your profile")
	case ComponentBehavior:
		tips = append(tips, "Maintain positive interactions with the community")
	}

	switch level {
	case domain.LevelUnverified:
		tips = append(tips, "Start by verifying your identity with CNIC or passport")
	case domain.LevelBronze:
		tips = append(tips, "Reach Silver level by completing address verification")
	}

	return tips
}

// ComponentWeights returns a copy of the fixed component weights.
func (c *Calculator) ComponentWeights() map[string]float64 {
	weights := make(map[string]float64, len(componentWeights))
	for k, v := range componentWeights {
		weights[k] = v
	}
	return weights
}

func clampComponent(score float64) float64 {
	if score < 0 {
		return 0
	}
	return math.Min(score, MaxComponentScore)
}
