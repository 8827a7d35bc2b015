package reocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/platinummonkey/emend/internal/logger"
)

// GoogleVisionClient implements VisionClient for Google's Gemini API
type GoogleVisionClient struct {
	client      *genai.Client
	logger      *logger.Logger
	temperature float64
	maxRetries  int
}

// NewGoogleVisionClient creates a new Google Gemini vision client
func NewGoogleVisionClient(ctx context.Context, apiKey string, temperature float64, maxRetries int, log *logger.Logger) (*GoogleVisionClient, error) {
	if log == nil {
		log = logger.Get()
	}

	opts := []option.ClientOption{
		option.WithAPIKey(apiKey),
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GoogleVisionClient{
		client:      client,
		logger:      log,
		temperature: temperature,
		maxRetries:  maxRetries,
	}, nil
}

// TranscribeLine reads a line image using Google's Gemini vision API
func (g *GoogleVisionClient) TranscribeLine(ctx context.Context, model string, imageData string) (*LineTranscription, error) {
	g.logger.WithFields("model", model, "provider", "google").Debug("Transcribing line with Google Gemini")

	// Decode base64 image data
	imgBytes, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	genModel := g.client.GenerativeModel(model)
	genModel.SetTemperature(float32(g.temperature))
	genModel.ResponseMIMEType = "application/json"

	resp, err := genModel.GenerateContent(
		ctx,
		genai.Text(lineTranscriptionPrompt),
		genai.ImageData("png", imgBytes),
	)

	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	// Extract text content from response
	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content = string(txt)
			break
		}
	}

	if content == "" {
		return nil, fmt.Errorf("no text content in Gemini response")
	}

	transcription, err := parseTranscription(content)
	if err != nil {
		g.logger.WithFields("content", content).Debug("Failed to parse Gemini transcription response")
		return nil, err
	}

	g.logger.WithFields("confidence", transcription.Confidence).Debug("Gemini transcription completed")
	return transcription, nil
}

// HealthCheck verifies that the Gemini API is accessible
func (g *GoogleVisionClient) HealthCheck(ctx context.Context, model string) error {
	// Make a minimal API call to verify credentials
	genModel := g.client.GenerativeModel(model)
	_, err := genModel.GenerateContent(ctx, genai.Text("test"))

	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}

	return nil
}

// Name returns the provider name
func (g *GoogleVisionClient) Name() string {
	return "google"
}

// SupportedModels returns a list of Google Gemini vision models
func (g *GoogleVisionClient) SupportedModels() []string {
	return []string{
		"gemini-1.5-pro",
		"gemini-1.5-pro-latest",
		"gemini-1.5-flash",
		"gemini-1.5-flash-latest",
		"gemini-pro-vision",
	}
}

// Close closes the Google client
func (g *GoogleVisionClient) Close() error {
	return g.client.Close()
}
