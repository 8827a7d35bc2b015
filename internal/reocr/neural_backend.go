package reocr

import (
	"context"
	"fmt"

	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/neural"
)

// NeuralBackend re-reads line images through the recognition sidecar.
// Two instances of it usually sit in one chain: the GPU tier at the
// front and the CPU tier as the final fallback, sharing a client.
type NeuralBackend struct {
	client *neural.Client
	model  string
	device neural.Device
	logger *logger.Logger
}

// NewNeuralBackend creates a neural strategy for the given device.
func NewNeuralBackend(client *neural.Client, model string, device neural.Device, log *logger.Logger) *NeuralBackend {
	if log == nil {
		log = logger.Get()
	}
	if model == "" {
		model = neural.DefaultModel
	}
	return &NeuralBackend{
		client: client,
		model:  model,
		device: device,
		logger: log,
	}
}

// Name returns the strategy name, which encodes the device.
func (b *NeuralBackend) Name() string {
	return "neural-" + string(b.device)
}

// Init verifies the recognition server is reachable.
func (b *NeuralBackend) Init(ctx context.Context) error {
	if err := b.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("recognition server unreachable: %w", err)
	}
	b.logger.WithFields("model", b.model, "device", string(b.device)).Debug("Neural re-OCR strategy ready")
	return nil
}

// RecognizeLine sends the line image to the recognition server.
func (b *NeuralBackend) RecognizeLine(ctx context.Context, image []byte) (*Result, error) {
	resp, err := b.client.RecognizeImage(ctx, b.model, image, b.device)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:       resp.Text,
		Confidence: resp.Confidence,
	}, nil
}

// Close is a no-op: the HTTP client holds no resources of its own.
func (b *NeuralBackend) Close() error {
	return nil
}
