package fraud

import (
	"context"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/features"
	"github.com/globaltrusthub/trusthub/internal/patterns"
	"github.com/globaltrusthub/trusthub/internal/rules"
)

// Pipeline runs the full fraud evaluation for one subject:
// feature extraction, scam language scoring, rule evaluation,
// profile aggregation, model prediction and the final decision.
type Pipeline struct {
	engine    *rules.Engine
	profiles  *rules.ProfileEngine
	extractor *features.Extractor
	predictor *features.Predictor
	matcher   *patterns.Matcher
	processor *Processor
}

// NewPipeline wires a fraud evaluation pipeline.
func NewPipeline(engine *rules.Engine, profiles *rules.ProfileEngine) *Pipeline {
	return &Pipeline{
		engine:    engine,
		profiles:  profiles,
		extractor: features.NewExtractor(),
		predictor: features.NewPredictor(),
		matcher:   patterns.NewMatcher(),
		processor: NewProcessor(),
	}
}

// EvaluateRequest is the raw subject data for one pipeline run.
type EvaluateRequest struct {
	TenantID  string         `json:"tenantId"`
	SubjectID string         `json:"subjectId"`
	TraceID   string         `json:"traceId,omitempty"`
	Input     features.Input `json:"input"`

	// Recent message contents scored for scam language
	Messages []string `json:"messages,omitempty"`

	// Velocity lookup window in seconds, 0 disables the lookup
	VelocityWindow int `json:"velocityWindow,omitempty"`
}

// Evaluate runs the pipeline and returns the final decision.
func (p *Pipeline) Evaluate(ctx context.Context, req *EvaluateRequest) (*domain.FraudEvaluation, error) {
	start := time.Now()

	vector := p.extractor.ExtractAll(req.Input)
	scamScore := p.scamLanguageScore(req.Messages)

	rulesStart := time.Now()
	ruleResults, err := p.engine.EvaluateAll(ctx, &rules.EvaluateInput{
		TenantID:          req.TenantID,
		SubjectID:         req.SubjectID,
		Features:          vector,
		ScamLanguageScore: scamScore,
		VelocityWindow:    req.VelocityWindow,
	})
	if err != nil {
		return nil, err
	}
	rulesMs := time.Since(rulesStart).Milliseconds()

	var profileResults []domain.ProfileResult
	if p.profiles != nil {
		profileResults = p.profiles.EvaluateProfiles(ruleResults)
	}

	prediction := p.predictor.Predict(vector)

	eval := p.processor.Process(ctx, &DecisionInput{
		TenantID:       req.TenantID,
		SubjectID:      req.SubjectID,
		TraceID:        req.TraceID,
		RuleResults:    ruleResults,
		ProfileResults: profileResults,
		Prediction:     &prediction,
		StartTime:      start,
	})
	eval.Metadata.RulesMs = rulesMs

	return eval, nil
}

// scamLanguageScore returns the highest pattern score across the
// subject's recent messages.
func (p *Pipeline) scamLanguageScore(messages []string) float64 {
	max := 0.0
	for _, msg := range messages {
		score, _ := p.matcher.Match(msg)
		if score > max {
			max = score
		}
	}
	return max
}
