// Package config provides configuration management for the emend pipeline.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the emend pipeline.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat selects log output encoding ("console" or "json")
	LogFormat string

	// ReOCREnabled determines whether flagged lines are re-recognized from
	// the page image. Disabled by default: the pipeline never re-OCRs a
	// document unless explicitly asked to.
	ReOCREnabled bool

	// PageImageDPI is the resolution at which source pages are rendered
	// when re-OCR needs a line crop
	PageImageDPI int

	// Dictionary configures the adaptive dictionary
	Dictionary DictionaryConfig

	// Detector configures the OCR error detector
	Detector DetectorConfig

	// ReOCR configures the tiered re-recognition engine
	ReOCR ReOCRConfig

	// Correction configures the legacy scoring/correction layer
	Correction CorrectionConfig
}

// DictionaryConfig holds adaptive-dictionary settings
type DictionaryConfig struct {
	// LearnedPath is the file the learned layer is loaded from and
	// persisted to (base dictionary and whitelist are never serialized)
	LearnedPath string

	// PersistLearned writes the learned layer back at the end of a run
	PersistLearned bool

	// ExtraVocabulary supplements the built-in scholarly whitelist
	ExtraVocabulary []string

	// MinSightings is how many verbatim observations of an unknown word
	// it takes before the dictionary learns it
	MinSightings int
}

// DetectorConfig holds error-detector settings
type DetectorConfig struct {
	// MinConfidenceToFlag is the confidence below which a suspicious
	// token is not reported
	MinConfidenceToFlag float64

	// MinWordLength is the shortest token the detector examines
	MinWordLength int
}

// ReOCRConfig holds settings for the tiered re-recognition engine
type ReOCRConfig struct {
	// Chain lists backends in escalation order. Valid entries:
	// neural-gpu, tesseract, neural-cpu, vision.
	Chain []string

	// MinConfidence is the confidence a re-recognized line must reach
	// before it replaces the original text
	MinConfidence float64

	// Neural configures the local recognition server (neural-gpu and
	// neural-cpu tiers share it)
	Neural NeuralConfig

	// Tesseract configures the CPU OCR tier
	Tesseract TesseractConfig

	// Vision configures the optional remote vision-model tier
	Vision VisionConfig
}

// NeuralConfig holds settings for the local neural recognition server
type NeuralConfig struct {
	// Endpoint is the recognition server base URL
	Endpoint string

	// Model is the recognition model to request
	Model string

	// Timeout bounds a single recognition request
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts per request
	MaxRetries int
}

// TesseractConfig holds settings for the Tesseract tier
type TesseractConfig struct {
	// Language is the Tesseract language code (e.g., "eng", "eng+deu")
	Language string
}

// VisionConfig holds configuration for remote vision-model providers
type VisionConfig struct {
	// Provider is the vision provider to use (anthropic, openai, google)
	Provider string

	// Model is the specific model to use for recognition
	Model string

	// APIKey is the API key for the provider. Populated from:
	// 1. macOS Keychain (if UseKeychain is true)
	// 2. Environment variables:
	//    - ANTHROPIC_API_KEY for Anthropic
	//    - OPENAI_API_KEY for OpenAI
	//    - GOOGLE_API_KEY or GOOGLE_APPLICATION_CREDENTIALS for Google
	APIKey string

	// Temperature controls randomness (0.0 = deterministic, recommended)
	Temperature float64

	// MaxRetries is the maximum number of retry attempts for API calls
	MaxRetries int

	// UseKeychain enables macOS Keychain lookup for API keys (macOS only)
	UseKeychain bool

	// KeychainServicePrefix is the prefix for keychain service names
	// Service names will be: {prefix}-{provider} (e.g., "emend-anthropic")
	KeychainServicePrefix string
}

// CorrectionConfig selects a correction preset plus per-knob overrides.
// A negative threshold means "use the preset's value".
type CorrectionConfig struct {
	// Preset is one of: conservative, balanced, aggressive
	Preset string

	// ApplyThreshold overrides the preset's confidence required to
	// actually substitute text (-1 = preset value)
	ApplyThreshold float64

	// ReviewThreshold overrides the preset's confidence required to
	// flag a word for review without substituting (-1 = preset value)
	ReviewThreshold float64
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".emend")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use env vars and defaults
	}

	// Enable environment variable support
	v.SetEnvPrefix("EMEND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Build config struct
	config := &Config{
		LogLevel:     v.GetString("log-level"),
		LogFormat:    v.GetString("log-format"),
		ReOCREnabled: v.GetBool("reocr-enabled"),
		PageImageDPI: v.GetInt("page-image-dpi"),
		Dictionary: DictionaryConfig{
			LearnedPath:     v.GetString("dict-learned-path"),
			PersistLearned:  v.GetBool("dict-persist"),
			ExtraVocabulary: v.GetStringSlice("dict-extra-vocabulary"),
			MinSightings:    v.GetInt("dict-min-sightings"),
		},
		Detector: DetectorConfig{
			MinConfidenceToFlag: v.GetFloat64("detect-min-confidence"),
			MinWordLength:       v.GetInt("detect-min-word-length"),
		},
		ReOCR: ReOCRConfig{
			Chain:         v.GetStringSlice("reocr-chain"),
			MinConfidence: v.GetFloat64("reocr-min-confidence"),
			Neural: NeuralConfig{
				Endpoint:   v.GetString("neural-endpoint"),
				Model:      v.GetString("neural-model"),
				Timeout:    v.GetDuration("neural-timeout"),
				MaxRetries: v.GetInt("neural-max-retries"),
			},
			Tesseract: TesseractConfig{
				Language: v.GetString("tesseract-language"),
			},
			Vision: VisionConfig{
				Provider:              v.GetString("vision-provider"),
				Model:                 v.GetString("vision-model"),
				Temperature:           v.GetFloat64("vision-temperature"),
				MaxRetries:            v.GetInt("vision-max-retries"),
				UseKeychain:           v.GetBool("vision-use-keychain"),
				KeychainServicePrefix: v.GetString("vision-keychain-service-prefix"),
			},
		},
		Correction: CorrectionConfig{
			Preset:          v.GetString("correction-preset"),
			ApplyThreshold:  v.GetFloat64("correction-apply-threshold"),
			ReviewThreshold: v.GetFloat64("correction-review-threshold"),
		},
	}

	// Load API keys from keychain or environment variables based on provider
	config.ReOCR.Vision.APIKey = loadAPIKeyForProvider(
		config.ReOCR.Vision.Provider,
		config.ReOCR.Vision.UseKeychain,
		config.ReOCR.Vision.KeychainServicePrefix,
	)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Get user home directory for default paths
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	defaultLearnedPath := filepath.Join(home, ".emend-learned.yaml")

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("reocr-enabled", false)
	v.SetDefault("page-image-dpi", 300)

	v.SetDefault("dict-learned-path", defaultLearnedPath)
	v.SetDefault("dict-persist", false)
	v.SetDefault("dict-extra-vocabulary", []string{})
	v.SetDefault("dict-min-sightings", 3)

	v.SetDefault("detect-min-confidence", 0.5)
	v.SetDefault("detect-min-word-length", 4)

	v.SetDefault("reocr-chain", []string{"neural-gpu", "tesseract", "neural-cpu"})
	v.SetDefault("reocr-min-confidence", 0.75)
	v.SetDefault("neural-endpoint", "http://localhost:8765")
	v.SetDefault("neural-model", "trocr-base-printed")
	v.SetDefault("neural-timeout", 30*time.Second)
	v.SetDefault("neural-max-retries", 3)
	v.SetDefault("tesseract-language", "eng")
	v.SetDefault("vision-provider", "anthropic")
	v.SetDefault("vision-model", "")
	v.SetDefault("vision-temperature", 0.0)
	v.SetDefault("vision-max-retries", 3)
	v.SetDefault("vision-use-keychain", false)
	v.SetDefault("vision-keychain-service-prefix", "emend")

	v.SetDefault("correction-preset", "balanced")
	v.SetDefault("correction-apply-threshold", -1.0)
	v.SetDefault("correction-review-threshold", -1.0)
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	// Validate page rendering resolution
	if c.PageImageDPI < 72 || c.PageImageDPI > 1200 {
		return fmt.Errorf("page-image-dpi must be between 72 and 1200, got %d", c.PageImageDPI)
	}

	// Validate dictionary settings
	if c.Dictionary.LearnedPath == "" {
		return fmt.Errorf("dict-learned-path cannot be empty")
	}
	if strings.HasPrefix(c.Dictionary.LearnedPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in dict-learned-path: %w", err)
		}
		c.Dictionary.LearnedPath = filepath.Join(home, c.Dictionary.LearnedPath[2:])
	}
	if c.Dictionary.PersistLearned {
		learnedDir := filepath.Dir(c.Dictionary.LearnedPath)
		if err := os.MkdirAll(learnedDir, 0755); err != nil {
			return fmt.Errorf("failed to create learned dictionary directory %s: %w", learnedDir, err)
		}
	}
	if c.Dictionary.MinSightings < 1 {
		return fmt.Errorf("dict-min-sightings must be at least 1, got %d", c.Dictionary.MinSightings)
	}

	// Validate detector settings
	if c.Detector.MinConfidenceToFlag < 0.0 || c.Detector.MinConfidenceToFlag > 1.0 {
		return fmt.Errorf("detect-min-confidence must be between 0.0 and 1.0, got %f", c.Detector.MinConfidenceToFlag)
	}
	if c.Detector.MinWordLength < 1 {
		return fmt.Errorf("detect-min-word-length must be at least 1, got %d", c.Detector.MinWordLength)
	}

	// Validate correction preset
	validPresets := map[string]bool{
		"conservative": true,
		"balanced":     true,
		"aggressive":   true,
	}
	if !validPresets[strings.ToLower(c.Correction.Preset)] {
		return fmt.Errorf("invalid correction-preset %q, must be one of: conservative, balanced, aggressive", c.Correction.Preset)
	}
	c.Correction.Preset = strings.ToLower(c.Correction.Preset)
	if c.Correction.ApplyThreshold > 1.0 {
		return fmt.Errorf("correction-apply-threshold must not exceed 1.0, got %f", c.Correction.ApplyThreshold)
	}
	if c.Correction.ReviewThreshold > 1.0 {
		return fmt.Errorf("correction-review-threshold must not exceed 1.0, got %f", c.Correction.ReviewThreshold)
	}

	// Validate re-OCR configuration only when it can actually run
	if c.ReOCREnabled {
		if err := c.validateReOCRConfig(); err != nil {
			return fmt.Errorf("invalid re-OCR configuration: %w", err)
		}
	}

	return nil
}

// validateReOCRConfig validates the re-recognition engine configuration
func (c *Config) validateReOCRConfig() error {
	if len(c.ReOCR.Chain) == 0 {
		return fmt.Errorf("reocr-chain cannot be empty when re-OCR is enabled")
	}

	validBackends := map[string]bool{
		"neural-gpu": true,
		"tesseract":  true,
		"neural-cpu": true,
		"vision":     true,
	}
	needsNeural := false
	needsVision := false
	for _, backend := range c.ReOCR.Chain {
		name := strings.ToLower(backend)
		if !validBackends[name] {
			return fmt.Errorf("invalid reocr-chain entry %q, must be one of: neural-gpu, tesseract, neural-cpu, vision", backend)
		}
		if name == "neural-gpu" || name == "neural-cpu" {
			needsNeural = true
		}
		if name == "vision" {
			needsVision = true
		}
	}

	if c.ReOCR.MinConfidence < 0.0 || c.ReOCR.MinConfidence > 1.0 {
		return fmt.Errorf("reocr-min-confidence must be between 0.0 and 1.0, got %f", c.ReOCR.MinConfidence)
	}

	if needsNeural {
		if c.ReOCR.Neural.Endpoint == "" {
			return fmt.Errorf("neural-endpoint cannot be empty when the chain contains a neural tier")
		}
		if c.ReOCR.Neural.Model == "" {
			return fmt.Errorf("neural-model cannot be empty when the chain contains a neural tier")
		}
		if c.ReOCR.Neural.MaxRetries < 0 {
			return fmt.Errorf("neural-max-retries must be non-negative, got %d", c.ReOCR.Neural.MaxRetries)
		}
	}

	if needsVision {
		if err := c.validateVisionConfig(); err != nil {
			return err
		}
	}

	return nil
}

// validateVisionConfig validates the vision provider configuration
func (c *Config) validateVisionConfig() error {
	validProviders := map[string]bool{
		"anthropic": true,
		"openai":    true,
		"google":    true,
	}
	if !validProviders[strings.ToLower(c.ReOCR.Vision.Provider)] {
		return fmt.Errorf("invalid vision-provider %q, must be one of: anthropic, openai, google", c.ReOCR.Vision.Provider)
	}
	c.ReOCR.Vision.Provider = strings.ToLower(c.ReOCR.Vision.Provider)

	if c.ReOCR.Vision.APIKey == "" {
		return fmt.Errorf("API key not found for provider %s, check environment variables", c.ReOCR.Vision.Provider)
	}

	if c.ReOCR.Vision.Temperature < 0.0 || c.ReOCR.Vision.Temperature > 2.0 {
		return fmt.Errorf("vision-temperature must be between 0.0 and 2.0, got %f", c.ReOCR.Vision.Temperature)
	}

	if c.ReOCR.Vision.MaxRetries < 0 {
		return fmt.Errorf("vision-max-retries must be non-negative, got %d", c.ReOCR.Vision.MaxRetries)
	}

	return nil
}

// loadAPIKeyForProvider loads the appropriate API key from keychain or environment variables
func loadAPIKeyForProvider(provider string, useKeychain bool, keychainPrefix string) string {
	// Try keychain first if enabled (macOS only)
	if useKeychain {
		if key := loadFromKeychain(provider, keychainPrefix); key != "" {
			return key
		}
	}

	// Fall back to environment variables
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "google":
		// Try GOOGLE_API_KEY first, then GOOGLE_APPLICATION_CREDENTIALS
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	default:
		return ""
	}
}

// loadFromKeychain attempts to retrieve an API key from macOS Keychain
// Service name format: {prefix}-{provider} (e.g., "emend-anthropic")
// Returns empty string if not found or on non-macOS platforms
func loadFromKeychain(provider, prefix string) string {
	// Only attempt on macOS
	if !isMacOS() {
		return ""
	}

	serviceName := fmt.Sprintf("%s-%s", prefix, strings.ToLower(provider))

	// Use security command to retrieve password
	// security find-generic-password -s "service-name" -w
	cmd := exec.Command("security", "find-generic-password", "-s", serviceName, "-w")
	output, err := cmd.Output()
	if err != nil {
		// Key not found or other error - silently fail and fall back to env vars
		return ""
	}

	// Trim whitespace and newlines
	key := strings.TrimSpace(string(output))
	return key
}

// isMacOS checks if the current platform is macOS
func isMacOS() bool {
	return runtime.GOOS == "darwin"
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	apiKey := "not set"
	if c.ReOCR.Vision.APIKey != "" {
		if len(c.ReOCR.Vision.APIKey) > 8 {
			apiKey = "***" + c.ReOCR.Vision.APIKey[len(c.ReOCR.Vision.APIKey)-4:]
		} else {
			apiKey = "***"
		}
	}

	return fmt.Sprintf(`Configuration:
  LogLevel: %s
  LogFormat: %s
  ReOCREnabled: %t
  PageImageDPI: %d
  Dictionary:
    LearnedPath: %s
    PersistLearned: %t
    ExtraVocabulary: %v
    MinSightings: %d
  Detector:
    MinConfidenceToFlag: %.2f
    MinWordLength: %d
  ReOCR:
    Chain: %v
    MinConfidence: %.2f
    Neural: endpoint=%s model=%s timeout=%s retries=%d
    Tesseract: language=%s
    Vision: provider=%s model=%s apiKey=%s temperature=%.2f retries=%d
  Correction:
    Preset: %s
    ApplyThreshold: %.2f
    ReviewThreshold: %.2f`,
		c.LogLevel,
		c.LogFormat,
		c.ReOCREnabled,
		c.PageImageDPI,
		c.Dictionary.LearnedPath,
		c.Dictionary.PersistLearned,
		c.Dictionary.ExtraVocabulary,
		c.Dictionary.MinSightings,
		c.Detector.MinConfidenceToFlag,
		c.Detector.MinWordLength,
		c.ReOCR.Chain,
		c.ReOCR.MinConfidence,
		c.ReOCR.Neural.Endpoint,
		c.ReOCR.Neural.Model,
		c.ReOCR.Neural.Timeout,
		c.ReOCR.Neural.MaxRetries,
		c.ReOCR.Tesseract.Language,
		c.ReOCR.Vision.Provider,
		c.ReOCR.Vision.Model,
		apiKey,
		c.ReOCR.Vision.Temperature,
		c.ReOCR.Vision.MaxRetries,
		c.Correction.Preset,
		c.Correction.ApplyThreshold,
		c.Correction.ReviewThreshold,
	)
}
