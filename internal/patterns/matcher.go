// Package patterns implements scam-language detection over free text.
//
// Detection is rule-based: text is normalized, then matched against a
// fixed table of category regex patterns. Each category with hits
// contributes a capped weighted amount to a suspicion score in [0,1].
package patterns

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Pattern categories.
const (
	CategoryUrgency           = "urgency"
	CategoryFalseGuarantee    = "false_guarantee"
	CategorySuspiciousPayment = "suspicious_payment"
	CategoryTooGood           = "too_good"
	CategoryPressure          = "pressure"
	CategorySecrecy           = "secrecy"
	CategoryImpersonation     = "impersonation"
)

// Categories lists all pattern categories in evaluation order.
var Categories = []string{
	CategoryUrgency,
	CategoryFalseGuarantee,
	CategorySuspiciousPayment,
	CategoryTooGood,
	CategoryPressure,
	CategorySecrecy,
	CategoryImpersonation,
}

// categoryWeights scale per-category contributions to the total score.
var categoryWeights = map[string]float64{
	CategoryUrgency:           1.0,
	CategoryFalseGuarantee:    1.5,
	CategorySuspiciousPayment: 2.0,
	CategoryTooGood:           1.5,
	CategoryPressure:          1.0,
	CategorySecrecy:           1.5,
	CategoryImpersonation:     1.2,
}

// categoryPatterns holds the raw regex sources per category.
// The impersonation patterns are suppressed when "verified" appears
// later in the text; that check lives in the matcher since RE2 has no
// lookahead.
var categoryPatterns = map[string][]string{
	CategoryUrgency: {
		`\b(urgent|immediately|right now|asap|hurry|limited time)\b`,
		`\b(act fast|don't wait|expires|deadline|today only)\b`,
	},
	CategoryFalseGuarantee: {
		`\b(100%|guaranteed|definitely|certainly|surely)\b.*\b(visa|admission|job|success)\b`,
		`\b(no risk|risk.?free|money.?back)\b`,
	},
	CategorySuspiciousPayment: {
		`\b(western union|moneygram|bitcoin|crypto|gift card)\b`,
		`\b(wire transfer|advance fee|processing fee|upfront)\b`,
		`\b(send money|transfer.*before|pay.*first)\b`,
	},
	CategoryTooGood: {
		`\b(free visa|no documents|no test|no interview)\b`,
		`\b(no requirements|no experience needed|easy)\b`,
		`\b(instant approval|same day|express processing)\b`,
	},
	CategoryPressure: {
		`\b(only \d+ slots?|few spots?|last chance|final offer)\b`,
		`\b(special offer|exclusive deal|limited spots?)\b`,
	},
	CategorySecrecy: {
		`\b(secret|confidential|don't tell|keep private)\b`,
		`\b(between us|just you|special arrangement)\b`,
	},
	CategoryImpersonation: {
		`\b(official|government|embassy|authorized agent)\b`,
		`\b(certified|licensed|accredited)\b`,
	},
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	emailRe      = regexp.MustCompile(`\S+@\S+`)
	phoneRe      = regexp.MustCompile(`\+?\d[\d\s\-]{8,}\d`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`([!?.]){2,}`)
)

// CategoryHit records the matches for one category and its score
// contribution, for explainability.
type CategoryHit struct {
	Category     string   `json:"category"`
	Hits         []string `json:"hits"`
	Contribution float64  `json:"contribution"`
}

// Matcher scores free text against the scam pattern table.
// Patterns are compiled once at construction; Match is pure and safe
// for concurrent use.
type Matcher struct {
	compiled map[string][]*regexp.Regexp
}

// NewMatcher compiles the pattern table and returns a matcher.
func NewMatcher() *Matcher {
	compiled := make(map[string][]*regexp.Regexp, len(categoryPatterns))
	for category, sources := range categoryPatterns {
		res := make([]*regexp.Regexp, 0, len(sources))
		for _, src := range sources {
			res = append(res, regexp.MustCompile(src))
		}
		compiled[category] = res
	}
	return &Matcher{compiled: compiled}
}

// CleanText normalizes text for pattern matching: NFKD unicode fold,
// lowercase, URL/email/phone replacement with placeholder tokens,
// whitespace collapse, and repeated-punctuation dedupe.
func CleanText(text string) string {
	text = norm.NFKD.String(text)
	text = strings.ToLower(text)

	text = urlRe.ReplaceAllString(text, " [URL] ")
	text = emailRe.ReplaceAllString(text, " [EMAIL] ")
	text = phoneRe.ReplaceAllString(text, " [PHONE] ")

	text = whitespaceRe.ReplaceAllString(text, " ")
	text = punctRe.ReplaceAllString(text, "$1")

	return strings.TrimSpace(text)
}

// Match scores text against all pattern categories.
// Returns a score in [0,1] and per-category hit records. Empty text
// or no matches yields (0, nil).
func (m *Matcher) Match(text string) (float64, []CategoryHit) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return 0, nil
	}

	var weightedSum float64
	var hits []CategoryHit

	for _, category := range Categories {
		matched := m.matchCategory(category, cleaned)
		if len(matched) == 0 {
			continue
		}

		weight := categoryWeights[category]
		contribution := float64(len(matched)) * weight * 0.1
		if contribution > 0.3 {
			contribution = 0.3
		}
		weightedSum += contribution

		hits = append(hits, CategoryHit{
			Category:     category,
			Hits:         matched,
			Contribution: contribution,
		})
	}

	if weightedSum > 1.0 {
		weightedSum = 1.0
	}

	return weightedSum, hits
}

// matchCategory collects all pattern matches for one category.
func (m *Matcher) matchCategory(category, cleaned string) []string {
	var matched []string

	for _, re := range m.compiled[category] {
		locs := re.FindAllStringIndex(cleaned, -1)
		for _, loc := range locs {
			if category == CategoryImpersonation {
				// Authority claims followed by "verified" are not
				// treated as impersonation
				if strings.Contains(cleaned[loc[1]:], "verified") {
					continue
				}
			}
			matched = append(matched, cleaned[loc[0]:loc[1]])
		}
	}

	return matched
}

// Weight returns the fixed weight for a category, defaulting to 1.0.
func Weight(category string) float64 {
	if w, ok := categoryWeights[category]; ok {
		return w
	}
	return 1.0
}
