package reocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/platinummonkey/emend/internal/logger"
)

// VisionBackend re-reads line images through a hosted multimodal model.
// It sits at the end of the strategy chain because every call costs
// money and round-trips to an external API.
type VisionBackend struct {
	cfg    *VisionClientConfig
	client VisionClient
	logger *logger.Logger
}

// NewVisionBackend creates a vision backend for the configured provider.
// The provider client itself is not created until Init so that a
// misconfigured provider only fails when the chain actually reaches it.
func NewVisionBackend(cfg *VisionClientConfig, log *logger.Logger) *VisionBackend {
	if log == nil {
		log = logger.Get()
	}
	if cfg.Model == "" {
		cfg.Model = GetDefaultModelForProvider(cfg.Provider)
	}
	return &VisionBackend{
		cfg:    cfg,
		logger: log,
	}
}

// Name returns the strategy name for this backend
func (v *VisionBackend) Name() string {
	return "vision"
}

// Init creates the provider client and verifies the API is reachable
func (v *VisionBackend) Init(ctx context.Context) error {
	if err := ValidateProviderConfig(v.cfg); err != nil {
		return fmt.Errorf("invalid vision provider config: %w", err)
	}

	client, err := NewVisionClient(ctx, v.cfg, v.logger)
	if err != nil {
		return fmt.Errorf("failed to create vision client: %w", err)
	}

	if err := client.HealthCheck(ctx, v.cfg.Model); err != nil {
		if closer, ok := client.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("vision provider %s unreachable: %w", client.Name(), err)
	}

	v.client = client
	v.logger.WithFields("provider", client.Name(), "model", v.cfg.Model).Debug("Vision backend initialized")
	return nil
}

// RecognizeLine transcribes a single line image via the vision provider
func (v *VisionBackend) RecognizeLine(ctx context.Context, image []byte) (*Result, error) {
	if v.client == nil {
		return nil, fmt.Errorf("vision backend not initialized")
	}

	encoded := base64.StdEncoding.EncodeToString(image)

	transcription, err := v.client.TranscribeLine(ctx, v.cfg.Model, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe line: %w", err)
	}

	return &Result{
		Text:       transcription.Text,
		Confidence: transcription.Confidence,
	}, nil
}

// Close releases the provider client if it holds resources
func (v *VisionBackend) Close() error {
	if closer, ok := v.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
