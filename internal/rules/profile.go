package rules

import (
	"sync"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// ProfileEngine evaluates risk profiles based on rule results.
// It calculates weighted scores from individual rule results.
type ProfileEngine struct {
	mu       sync.RWMutex
	profiles map[string]*domain.RiskProfile // key: profileID
}

// NewProfileEngine creates a new profile evaluation engine.
func NewProfileEngine() *ProfileEngine {
	return &ProfileEngine{
		profiles: make(map[string]*domain.RiskProfile),
	}
}

// LoadProfiles loads profile configurations into the engine.
func (e *ProfileEngine) LoadProfiles(profiles []*domain.RiskProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.profiles = make(map[string]*domain.RiskProfile)
	for _, p := range profiles {
		if p.Enabled {
			e.profiles[p.ID] = p
		}
	}
}

// ReloadProfiles clears and reloads profiles (hot reload).
func (e *ProfileEngine) ReloadProfiles(profiles []*domain.RiskProfile) {
	e.LoadProfiles(profiles)
}

// GetLoadedProfiles returns currently loaded profiles.
func (e *ProfileEngine) GetLoadedProfiles() []*domain.RiskProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]*domain.RiskProfile, 0, len(e.profiles))
	for _, p := range e.profiles {
		result = append(result, p)
	}
	return result
}

// ProfileCount returns the number of loaded profiles.
func (e *ProfileEngine) ProfileCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.profiles)
}

// EvaluateProfiles calculates profile scores from rule results.
// For each profile, it calculates a weighted sum of the rule scores
// and determines if the alert threshold is exceeded.
//
// Algorithm:
// 1. Build a map of ruleID -> score from rule results
// 2. For each profile, sum (rule_score * weight) for matching rules
// 3. Compare against alert threshold
// 4. Return triggered profiles
func (e *ProfileEngine) EvaluateProfiles(ruleResults []domain.RuleResult) []domain.ProfileResult {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.profiles) == 0 {
		return nil
	}

	// Build rule score map for O(1) lookups
	ruleScores := make(map[string]float64, len(ruleResults))
	for _, r := range ruleResults {
		ruleScores[r.RuleID] = r.Score
	}

	results := make([]domain.ProfileResult, 0, len(e.profiles))

	for _, profile := range e.profiles {
		result := e.evaluateProfile(profile, ruleScores)
		result.ProcessMs = time.Since(start).Milliseconds()
		results = append(results, result)
	}

	return results
}

// evaluateProfile calculates the score for a single profile.
func (e *ProfileEngine) evaluateProfile(profile *domain.RiskProfile, ruleScores map[string]float64) domain.ProfileResult {
	result := domain.ProfileResult{
		ProfileID:     profile.ID,
		ProfileName:   profile.Name,
		Threshold:     profile.AlertThreshold,
		Contributions: make([]domain.RuleContribution, 0, len(profile.Rules)),
	}

	var totalScore float64

	for _, ruleWeight := range profile.Rules {
		ruleScore, exists := ruleScores[ruleWeight.RuleID]
		if !exists {
			// Rule not evaluated - skip
			continue
		}

		contribution := ruleScore * ruleWeight.Weight
		totalScore += contribution

		result.Contributions = append(result.Contributions, domain.RuleContribution{
			RuleID:       ruleWeight.RuleID,
			RuleScore:    ruleScore,
			Weight:       ruleWeight.Weight,
			Contribution: contribution,
		})
	}

	result.Score = totalScore
	result.Triggered = totalScore >= profile.AlertThreshold

	return result
}

// EvaluateProfile evaluates a single profile by ID.
func (e *ProfileEngine) EvaluateProfile(profileID string, ruleResults []domain.RuleResult) (*domain.ProfileResult, bool) {
	e.mu.RLock()
	profile, exists := e.profiles[profileID]
	if !exists {
		e.mu.RUnlock()
		return nil, false
	}

	// Build rule score map while holding lock
	ruleScores := make(map[string]float64, len(ruleResults))
	for _, r := range ruleResults {
		ruleScores[r.RuleID] = r.Score
	}

	// Evaluate while holding lock to prevent data race on profile pointer
	result := e.evaluateProfile(profile, ruleScores)
	e.mu.RUnlock()

	return &result, true
}

// GetTriggeredProfiles returns only profiles that exceeded their threshold.
func (e *ProfileEngine) GetTriggeredProfiles(ruleResults []domain.RuleResult) []domain.ProfileResult {
	all := e.EvaluateProfiles(ruleResults)
	triggered := make([]domain.ProfileResult, 0)
	for _, p := range all {
		if p.Triggered {
			triggered = append(triggered, p)
		}
	}
	return triggered
}

// Close cleans up the engine.
func (e *ProfileEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles = make(map[string]*domain.RiskProfile)
	return nil
}
