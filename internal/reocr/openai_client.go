package reocr

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/platinummonkey/emend/internal/logger"
)

// OpenAIVisionClient implements VisionClient for OpenAI's vision API
type OpenAIVisionClient struct {
	client      openai.Client
	logger      *logger.Logger
	temperature float64
	maxRetries  int
}

// NewOpenAIVisionClient creates a new OpenAI vision client
func NewOpenAIVisionClient(apiKey string, temperature float64, maxRetries int, log *logger.Logger) *OpenAIVisionClient {
	if log == nil {
		log = logger.Get()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if maxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}

	client := openai.NewClient(opts...)

	return &OpenAIVisionClient{
		client:      client,
		logger:      log,
		temperature: temperature,
		maxRetries:  maxRetries,
	}
}

// TranscribeLine reads a line image using OpenAI's vision API
func (o *OpenAIVisionClient) TranscribeLine(ctx context.Context, model string, imageData string) (*LineTranscription, error) {
	o.logger.WithFields("model", model, "provider", "openai").Debug("Transcribing line with OpenAI")

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(lineTranscriptionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:image/png;base64,%s", imageData),
				}),
			}),
		},
		Temperature: openai.Float(o.temperature),
	})

	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	transcription, err := parseTranscription(content)
	if err != nil {
		o.logger.WithFields("content", content).Debug("Failed to parse OpenAI transcription response")
		return nil, err
	}

	o.logger.WithFields("confidence", transcription.Confidence).Debug("OpenAI transcription completed")
	return transcription, nil
}

// HealthCheck verifies that the OpenAI API is accessible
func (o *OpenAIVisionClient) HealthCheck(ctx context.Context, model string) error {
	// Checking the model also verifies the credentials
	_, err := o.client.Models.Get(ctx, model)
	if err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

// Name returns the provider name
func (o *OpenAIVisionClient) Name() string {
	return "openai"
}

// SupportedModels returns a list of OpenAI vision models
func (o *OpenAIVisionClient) SupportedModels() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4-vision-preview",
	}
}
