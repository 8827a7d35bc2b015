package reocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// lineTranscriptionPrompt instructs a vision model to act as a
// faithful OCR engine for one line crop. Exact transcription matters
// more than fluency: the model must not silently fix archaic spellings
// or normalize diacritics.
const lineTranscriptionPrompt = `This image shows a single line of printed text from a scanned book page.
Transcribe it exactly as printed, preserving capitalization, punctuation, diacritics, and original spellings.
Do not correct, translate, or modernize anything.
Return ONLY valid JSON with no markdown formatting, no code blocks, no explanation.

Format:
{"text": "the transcribed line", "confidence": 0.95}

Rules:
- confidence is 0.0-1.0, use 0.8 if uncertain
- Return {"text": "", "confidence": 0.0} if the image holds no legible text`

// LineTranscription is a vision provider's reading of one line image.
type LineTranscription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// VisionClient is an interface for vision-capable LLM providers that
// can transcribe line images
type VisionClient interface {
	// TranscribeLine reads a base64-encoded PNG of a single text line
	TranscribeLine(ctx context.Context, model string, imageData string) (*LineTranscription, error)

	// HealthCheck verifies that the provider is accessible and the model is available
	HealthCheck(ctx context.Context, model string) error

	// Name returns the name of the provider (e.g., "openai", "anthropic", "google")
	Name() string

	// SupportedModels returns a list of supported model names for this provider
	SupportedModels() []string
}

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	// ProviderOpenAI represents OpenAI's vision API
	ProviderOpenAI ProviderType = "openai"

	// ProviderAnthropic represents Anthropic's Claude API with vision
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderGoogle represents Google's Gemini API
	ProviderGoogle ProviderType = "google"
)

// VisionClientConfig holds common configuration for all vision clients
type VisionClientConfig struct {
	// Provider is the LLM provider type (openai, anthropic, google)
	Provider ProviderType

	// Model is the specific model to use
	Model string

	// APIKey is the API key for the provider
	APIKey string

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// Temperature controls randomness (0.0 = deterministic, recommended for OCR)
	Temperature float64
}

// parseTranscription decodes a provider's JSON reply, tolerating the
// markdown code fences some models wrap around it despite the prompt.
func parseTranscription(content string) (*LineTranscription, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out LineTranscription
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}
	return &out, nil
}
