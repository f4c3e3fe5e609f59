package patterns

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Risk levels for assessments.
const (
	RiskMinimal = "minimal"
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
)

// DefaultScamThreshold is the probability above which a message is
// classified as a scam.
const DefaultScamThreshold = 0.5

// flagThreshold is the per-message probability above which a message
// is flagged in conversation analysis.
const flagThreshold = 0.3

// Classifier scores text for scam probability, for plugging in a
// trained model alongside the rule-based matcher.
type Classifier interface {
	Classify(text string) float64
}

// Assessment is a human-readable risk summary for one message.
type Assessment struct {
	Score          float64       `json:"score"`
	RiskLevel      string        `json:"riskLevel"`
	Recommendation string        `json:"recommendation"`
	Details        []CategoryHit `json:"details"`
}

// Prediction is the full analysis result for one message.
type Prediction struct {
	Text            string     `json:"text"`
	ScamProbability float64    `json:"scamProbability"`
	IsScam          bool       `json:"isScam"`
	RuleScore       float64    `json:"ruleScore"`
	ModelScore      float64    `json:"modelScore"`
	Assessment      Assessment `json:"assessment"`

	TokenCount int     `json:"tokenCount"`
	HasURL     bool    `json:"hasUrl"`
	CapsRatio  float64 `json:"capsRatio"`
}

// Message is one conversation message to analyze.
type Message struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// FlaggedMessage records a message that exceeded the flag threshold.
type FlaggedMessage struct {
	MessageIndex int           `json:"messageIndex"`
	SenderID     string        `json:"senderId"`
	Score        float64       `json:"score"`
	Preview      string        `json:"preview"`
	Reasons      []CategoryHit `json:"reasons"`
}

// ConversationAnalysis is the conversation-level result.
type ConversationAnalysis struct {
	RiskLevel      string           `json:"riskLevel"`
	MaxScore       float64          `json:"maxScore"`
	Flagged        []FlaggedMessage `json:"flaggedMessages"`
	FlaggedCount   int              `json:"flaggedCount"`
	TotalMessages  int              `json:"totalMessages"`
	Recommendation string           `json:"recommendation"`
}

// Analyzer combines the rule-based matcher with an optional trained
// classifier. The rule score carries 60% of the final probability and
// the classifier 40%. Safe for concurrent use; per-request threshold
// overrides go through PredictWithThreshold and never touch the
// shared default.
type Analyzer struct {
	matcher    *Matcher
	classifier Classifier

	mu        sync.RWMutex
	threshold float64
}

// NewAnalyzer creates an analyzer. A nil classifier falls back to the
// rule score for the model component.
func NewAnalyzer(classifier Classifier) *Analyzer {
	return &Analyzer{
		matcher:    NewMatcher(),
		classifier: classifier,
		threshold:  DefaultScamThreshold,
	}
}

// clampThreshold bounds a threshold to [0.1, 0.9].
func clampThreshold(threshold float64) float64 {
	if threshold < 0.1 {
		return 0.1
	}
	if threshold > 0.9 {
		return 0.9
	}
	return threshold
}

// SetThreshold updates the default scam classification threshold,
// clamped to [0.1, 0.9].
func (a *Analyzer) SetThreshold(threshold float64) {
	a.mu.Lock()
	a.threshold = clampThreshold(threshold)
	a.mu.Unlock()
}

// Threshold returns the current default threshold.
func (a *Analyzer) Threshold() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threshold
}

// Predict analyzes a single message against the default threshold.
func (a *Analyzer) Predict(text string) Prediction {
	return a.PredictWithThreshold(text, a.Threshold())
}

// PredictWithThreshold analyzes a single message against a caller
// threshold, clamped to [0.1, 0.9]. The default is left untouched.
func (a *Analyzer) PredictWithThreshold(text string, threshold float64) Prediction {
	threshold = clampThreshold(threshold)

	ruleScore, hits := a.matcher.Match(text)

	modelScore := ruleScore
	if a.classifier != nil {
		modelScore = a.classifier.Classify(text)
	}

	finalScore := ruleScore*0.6 + modelScore*0.4

	cleaned := CleanText(text)

	return Prediction{
		Text:            truncate(text, 200),
		ScamProbability: finalScore,
		IsScam:          finalScore >= threshold,
		RuleScore:       ruleScore,
		ModelScore:      modelScore,
		Assessment:      Assess(finalScore, hits),
		TokenCount:      len(strings.Fields(cleaned)),
		HasURL:          strings.Contains(cleaned, "[URL]"),
		CapsRatio:       capsRatio(text),
	}
}

// AnalyzeConversation analyzes all messages in a conversation and
// derives a conversation-level risk verdict.
func (a *Analyzer) AnalyzeConversation(messages []Message) ConversationAnalysis {
	if len(messages) == 0 {
		return ConversationAnalysis{
			RiskLevel:      RiskMinimal,
			Flagged:        []FlaggedMessage{},
			Recommendation: "No messages to analyze",
		}
	}

	flagged := make([]FlaggedMessage, 0)
	var maxScore float64

	for i, msg := range messages {
		if msg.Content == "" {
			continue
		}

		result := a.Predict(msg.Content)

		if result.ScamProbability > flagThreshold {
			flagged = append(flagged, FlaggedMessage{
				MessageIndex: i,
				SenderID:     msg.SenderID,
				Score:        result.ScamProbability,
				Preview:      truncate(msg.Content, 100),
				Reasons:      result.Assessment.Details,
			})
		}

		if result.ScamProbability > maxScore {
			maxScore = result.ScamProbability
		}
	}

	var riskLevel string
	switch {
	case maxScore >= 0.7 || len(flagged) >= 3:
		riskLevel = RiskHigh
	case maxScore >= 0.4 || len(flagged) >= 2:
		riskLevel = RiskMedium
	case maxScore >= 0.2:
		riskLevel = RiskLow
	default:
		riskLevel = RiskMinimal
	}

	return ConversationAnalysis{
		RiskLevel:      riskLevel,
		MaxScore:       maxScore,
		Flagged:        flagged,
		FlaggedCount:   len(flagged),
		TotalMessages:  len(messages),
		Recommendation: conversationRecommendation(riskLevel),
	}
}

// Assess maps a score and its hit records to a risk level with a
// recommendation.
func Assess(score float64, details []CategoryHit) Assessment {
	var riskLevel, recommendation string

	switch {
	case score >= 0.7:
		riskLevel = RiskHigh
		recommendation = "This message shows multiple scam indicators. Exercise extreme caution."
	case score >= 0.4:
		riskLevel = RiskMedium
		recommendation = "This message has some suspicious elements. Verify claims independently."
	case score >= 0.2:
		riskLevel = RiskLow
		recommendation = "Minor concerns detected. Proceed with normal verification."
	default:
		riskLevel = RiskMinimal
		recommendation = "No significant scam indicators detected."
	}

	return Assessment{
		Score:          score,
		RiskLevel:      riskLevel,
		Recommendation: recommendation,
		Details:        details,
	}
}

func conversationRecommendation(riskLevel string) string {
	switch riskLevel {
	case RiskHigh:
		return "HIGH RISK: This conversation shows significant scam indicators. " +
			"Do not send money or share personal documents. Report if needed."
	case RiskMedium:
		return "CAUTION: Some suspicious patterns detected. " +
			"Verify claims independently before proceeding."
	case RiskLow:
		return "Some minor concerns. Exercise normal caution and verify credentials."
	default:
		return "No significant concerns detected."
	}
}

// truncate shortens s to max runes. Cutting on a rune boundary keeps
// previews valid UTF-8 for non-ASCII messages.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func capsRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len(text))
}
