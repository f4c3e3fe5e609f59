package decision

import "context"

// OCRResult is the output of text extraction from a document image.
type OCRResult struct {
	RawText      string            `json:"rawText"`
	Confidence   float64           `json:"confidence"`
	Fields       map[string]string `json:"fields"`
	DocumentType string            `json:"documentType"`
}

// ForgeryResult is the output of forgery analysis.
type ForgeryResult struct {
	ForgeryDetected bool    `json:"forgeryDetected"`
	Confidence      float64 `json:"confidence"` // high = likely forged
	RiskLevel       string  `json:"riskLevel"`
}

// TextExtractor extracts text and structured fields from a document
// image. Real implementations wrap an OCR provider.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageRef string, documentType string) (*OCRResult, error)
}

// ForgeryAnalyzer analyzes a document image for tampering.
type ForgeryAnalyzer interface {
	AnalyzeDocument(ctx context.Context, imageRef string, documentType string) (*ForgeryResult, error)
}

// NeutralExtractor is a TextExtractor that reports zero confidence
// and no fields. It stands in until a real OCR provider is wired up
// and keeps the scoring contract independent of the implementation.
type NeutralExtractor struct{}

// ExtractText returns an empty extraction with zero confidence.
func (NeutralExtractor) ExtractText(_ context.Context, _ string, documentType string) (*OCRResult, error) {
	return &OCRResult{
		Fields:       map[string]string{},
		DocumentType: documentType,
	}, nil
}

// NeutralAnalyzer is a ForgeryAnalyzer that never detects forgery.
type NeutralAnalyzer struct{}

// AnalyzeDocument reports no forgery with zero confidence.
func (NeutralAnalyzer) AnalyzeDocument(context.Context, string, string) (*ForgeryResult, error) {
	return &ForgeryResult{RiskLevel: "low"}, nil
}
