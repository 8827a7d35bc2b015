package reocr

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/neural"
)

// NewEngineFromConfig builds the strategy chain named by the
// configuration. The neural-gpu and neural-cpu tiers share one HTTP
// client; no backend touches the network here, that happens in each
// backend's lazy Init.
func NewEngineFromConfig(cfg *config.ReOCRConfig, log *logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Get()
	}
	if len(cfg.Chain) == 0 {
		return nil, fmt.Errorf("re-ocr chain is empty")
	}

	var neuralClient *neural.Client
	getNeuralClient := func() *neural.Client {
		if neuralClient == nil {
			opts := []neural.ClientOption{
				neural.WithLogger(log),
			}
			if cfg.Neural.Endpoint != "" {
				opts = append(opts, neural.WithEndpoint(cfg.Neural.Endpoint))
			}
			if cfg.Neural.Timeout > 0 {
				opts = append(opts, neural.WithTimeout(cfg.Neural.Timeout))
			}
			if cfg.Neural.MaxRetries >= 0 {
				opts = append(opts, neural.WithMaxRetries(cfg.Neural.MaxRetries))
			}
			neuralClient = neural.NewClient(opts...)
		}
		return neuralClient
	}

	backends := make([]Backend, 0, len(cfg.Chain))
	for _, entry := range cfg.Chain {
		switch strings.ToLower(entry) {
		case "neural-gpu":
			backends = append(backends, NewNeuralBackend(getNeuralClient(), cfg.Neural.Model, neural.DeviceGPU, log))
		case "tesseract":
			backends = append(backends, NewTesseractBackend(cfg.Tesseract.Language, log))
		case "neural-cpu":
			backends = append(backends, NewNeuralBackend(getNeuralClient(), cfg.Neural.Model, neural.DeviceCPU, log))
		case "vision":
			backends = append(backends, NewVisionBackend(&VisionClientConfig{
				Provider:    ProviderType(strings.ToLower(cfg.Vision.Provider)),
				Model:       cfg.Vision.Model,
				APIKey:      cfg.Vision.APIKey,
				Temperature: cfg.Vision.Temperature,
				MaxRetries:  cfg.Vision.MaxRetries,
			}, log))
		default:
			return nil, fmt.Errorf("unknown re-ocr strategy %q (valid: neural-gpu, tesseract, neural-cpu, vision)", entry)
		}
	}

	log.WithFields("chain", strings.Join(cfg.Chain, " > ")).Debug("Built re-OCR strategy chain")
	return NewEngine(backends, &Config{Logger: log}), nil
}
