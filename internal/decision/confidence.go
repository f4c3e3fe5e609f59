// Package decision implements the document verification decision
// policy: combining OCR, forgery, validation and cross-reference
// signals into a confidence score and an approve/reject/review
// verdict.
package decision

import (
	"math"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// Component names in confidence breakdowns.
const (
	ComponentOCRQuality     = "ocr_quality"
	ComponentAuthenticity   = "authenticity"
	ComponentValidation     = "validation"
	ComponentCrossReference = "cross_reference"
)

// componentWeights are renormalized over the components present in a
// given scoring call.
var componentWeights = map[string]float64{
	ComponentOCRQuality:     0.2,
	ComponentAuthenticity:   0.4,
	ComponentValidation:     0.25,
	ComponentCrossReference: 0.15,
}

// Thresholds holds the approve/reject cutoffs for one document type.
type Thresholds struct {
	AutoApprove float64
	AutoReject  float64
}

// ThresholdsFor resolves the decision thresholds for a document type.
// Higher-risk document types carry stricter thresholds. Resolution is
// per call; the scorer itself stays stateless.
func ThresholdsFor(documentType string) Thresholds {
	switch documentType {
	case "passport", "cnic", "bank_statement":
		return Thresholds{AutoApprove: 0.98, AutoReject: 0.40}
	case "degree", "experience_letter":
		return Thresholds{AutoApprove: 0.92, AutoReject: 0.35}
	default:
		return Thresholds{AutoApprove: 0.90, AutoReject: 0.30}
	}
}

// ConfidenceScorer combines verification signals into decisions.
// It holds no mutable state and is safe for concurrent use.
type ConfidenceScorer struct {
	now func() time.Time
}

// NewConfidenceScorer creates a confidence scorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{now: time.Now}
}

// WithClock overrides the scorer's time source. Used in tests.
func (s *ConfidenceScorer) WithClock(now func() time.Time) *ConfidenceScorer {
	s.now = now
	return s
}

// Score combines document signals into an overall confidence score
// and decision. Weights are renormalized over the components present:
// cross_reference only participates when the signal carries one.
// An explicit forgery detection rejects regardless of score.
func (s *ConfidenceScorer) Score(signals domain.DocumentSignals) domain.ConfidenceResult {
	scores := map[string]float64{
		ComponentOCRQuality:   ocrQuality(signals),
		ComponentAuthenticity: 1.0 - signals.ForgeryConfidence,
		ComponentValidation:   validationScore(signals.ValidationPassed),
	}
	if signals.CrossReferenceScore != nil {
		scores[ComponentCrossReference] = *signals.CrossReferenceScore
	}

	var totalWeight, weightedSum float64
	for name, score := range scores {
		w := componentWeights[name]
		totalWeight += w
		weightedSum += score * w
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = weightedSum / totalWeight
	}

	thresholds := ThresholdsFor(signals.DocumentType)
	decision := makeDecision(overall, signals.ForgeryDetected, thresholds)

	return domain.ConfidenceResult{
		OverallScore:         overall,
		ComponentScores:      scores,
		Decision:             decision,
		RequiresManualReview: decision == domain.DecisionReview,
		AutoApproved:         decision == domain.DecisionApprove,
		AutoRejected:         decision == domain.DecisionReject,
		Timestamp:            s.now(),
	}
}

// DocumentSetScore aggregates decisions for a set of documents with a
// weakest-link policy: any reject rejects the set, any review forces
// review, and the reported score is the minimum individual score.
func (s *ConfidenceScorer) DocumentSetScore(results []domain.ConfidenceResult) domain.DocumentSetResult {
	if len(results) == 0 {
		return domain.DocumentSetResult{
			Decision: domain.DecisionReject,
		}
	}

	minScore := math.Inf(1)
	anyRejected := false
	anyReview := false

	for _, r := range results {
		minScore = math.Min(minScore, r.OverallScore)
		switch r.Decision {
		case domain.DecisionReject:
			anyRejected = true
		case domain.DecisionReview:
			anyReview = true
		}
	}

	decision := domain.DecisionApprove
	if anyRejected {
		decision = domain.DecisionReject
	} else if anyReview {
		decision = domain.DecisionReview
	}

	return domain.DocumentSetResult{
		OverallScore:      minScore,
		Decision:          decision,
		DocumentsAnalyzed: len(results),
		IndividualScores:  results,
	}
}

// Explanations generates human-readable notes for a confidence
// result.
func (s *ConfidenceScorer) Explanations(result domain.ConfidenceResult) []string {
	explanations := make([]string, 0, 3)
	scores := result.ComponentScores

	if componentOrDefault(scores, ComponentAuthenticity, 1) < 0.8 {
		explanations = append(explanations, "Potential authenticity concerns detected")
	}
	if componentOrDefault(scores, ComponentOCRQuality, 1) < 0.7 {
		explanations = append(explanations, "Document quality may be insufficient")
	}
	if componentOrDefault(scores, ComponentValidation, 1) < 1.0 {
		explanations = append(explanations, "Some extracted fields could not be validated")
	}

	if len(explanations) == 0 {
		explanations = append(explanations, "Document passed all verification checks")
	}

	return explanations
}

// ocrQuality blends the raw OCR confidence with the ratio of
// extracted fields that were actually filled.
func ocrQuality(signals domain.DocumentSignals) float64 {
	totalFields := signals.FieldsTotal
	if totalFields == 0 {
		totalFields = 1
	}
	fieldRatio := float64(signals.FieldsFilled) / float64(totalFields)

	return signals.OCRConfidence*0.6 + fieldRatio*0.4
}

func validationScore(passed bool) float64 {
	if passed {
		return 1.0
	}
	return 0.5
}

func makeDecision(score float64, forgeryDetected bool, thresholds Thresholds) string {
	if forgeryDetected {
		return domain.DecisionReject
	}
	if score >= thresholds.AutoApprove {
		return domain.DecisionApprove
	}
	if score < thresholds.AutoReject {
		return domain.DecisionReject
	}
	return domain.DecisionReview
}

func componentOrDefault(scores map[string]float64, name string, def float64) float64 {
	if v, ok := scores[name]; ok {
		return v
	}
	return def
}
