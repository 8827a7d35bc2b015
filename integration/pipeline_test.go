package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/pipeline"
	"github.com/platinummonkey/emend/internal/quality"
)

// TestConfigPipelineIntegration tests that file configuration drives
// the pipeline and the learned dictionary round-trips through the
// configured path
func TestConfigPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	learnedPath := filepath.Join(tmpDir, "learned.yaml")

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log-level: error
dict-learned-path: ` + learnedPath + `
dict-persist: true
dict-min-sightings: 2
dict-extra-vocabulary:
  - grundnorm
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Dictionary.LearnedPath != learnedPath {
		t.Errorf("LearnedPath = %s, want %s", cfg.Dictionary.LearnedPath, learnedPath)
	}
	if cfg.Dictionary.MinSightings != 2 {
		t.Errorf("MinSightings = %d, want 2", cfg.Dictionary.MinSightings)
	}
	if !cfg.Dictionary.PersistLearned {
		t.Error("PersistLearned should be enabled")
	}

	// Defaults survive alongside file values
	if cfg.Detector.MinConfidenceToFlag != 0.5 {
		t.Errorf("MinConfidenceToFlag = %f, want default 0.5", cfg.Detector.MinConfidenceToFlag)
	}

	log, err := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	text := "The grundnorm held, but the beautlful morning did not.\n"

	// First run: configured vocabulary is accepted, the OCR error is
	// flagged and credited one sighting
	pipe, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	result := pipe.ProcessText(text)
	if result.Detection.WordsFlagged != 1 {
		t.Fatalf("WordsFlagged = %d, want 1 (only the OCR error)", result.Detection.WordsFlagged)
	}
	if result.Candidates[0].Word != "beautlful" {
		t.Errorf("flagged word = %q, want beautlful", result.Candidates[0].Word)
	}
	if err := pipe.PersistLearned(); err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}
	if _, err := os.Stat(learnedPath); os.IsNotExist(err) {
		t.Fatal("Learned file should exist after persist")
	}

	// Second run loads the sighting and records another, crossing the
	// configured threshold of two
	pipe2, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create second pipeline: %v", err)
	}
	result = pipe2.ProcessText(text)
	if result.Detection.WordsFlagged != 1 {
		t.Fatalf("WordsFlagged = %d, want 1 on the second sighting", result.Detection.WordsFlagged)
	}
	if err := pipe2.PersistLearned(); err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}

	// Third run accepts the now-learned word
	pipe3, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create third pipeline: %v", err)
	}
	result = pipe3.ProcessText(text)
	if result.Detection.WordsFlagged != 0 {
		t.Errorf("WordsFlagged = %d, want 0 once learned", result.Detection.WordsFlagged)
	}
}

// TestLoggerIntegration tests logger initialization and usage across components
func TestLoggerIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	// Create logger with file output
	log, err := logger.New(&logger.Config{
		Level:      "debug",
		Format:     "json",
		OutputPath: logFile,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Test logging with different components
	log.Info("Starting integration test")
	log.WithFields("component", "dictionary").Debug("Loading learned layer")
	log.WithFields("component", "pipeline").Info("Running stages")
	log.WithDocumentID("doc-123").WithPage(7).WithStage("reocr").Info("Processing page")

	// Sync logger to flush buffers
	if err := log.Sync(); err != nil {
		t.Logf("Logger sync warning: %v", err)
	}

	// Verify log file was created and has content
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Error("Log file should not be empty")
	}
	if !strings.Contains(string(content), "doc-123") {
		t.Error("Log file should carry structured fields")
	}
}

// TestLearnedDictionaryLifecycle tests the learned layer's evidence
// accumulation, persistence, and pruning across dictionary instances
func TestLearnedDictionaryLifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "learned.yaml")

	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// A missing file starts the layer empty
	dict := dictionary.New(&dictionary.Config{MinSightings: 3, Logger: log})
	if err := dict.Load(path); err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if dict.LearnedCount() != 0 {
		t.Errorf("LearnedCount = %d, want 0", dict.LearnedCount())
	}

	// Two sightings stay below the bar; a confirmation is immediate
	dict.Learn("quiddity", dictionary.Evidence{Sightings: 1})
	dict.Learn("quiddity", dictionary.Evidence{Sightings: 1})
	if dict.Contains("quiddity") {
		t.Error("quiddity should not be accepted at two sightings")
	}
	dict.Learn("haecceity", dictionary.Evidence{Confirmed: true})
	if !dict.Contains("haecceity") {
		t.Error("confirmed word should be accepted immediately")
	}

	if err := dict.Persist(path); err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}

	// A fresh instance picks up where the first left off
	dict2 := dictionary.New(&dictionary.Config{MinSightings: 3, Logger: log})
	if err := dict2.Load(path); err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if dict2.LearnedCount() != 2 {
		t.Fatalf("LearnedCount = %d, want 2 after reload", dict2.LearnedCount())
	}
	if dict2.Contains("quiddity") {
		t.Error("quiddity should still be below the bar after reload")
	}
	dict2.Learn("quiddity", dictionary.Evidence{Sightings: 1})
	if !dict2.Contains("quiddity") {
		t.Error("third sighting should cross the threshold")
	}
	if err := dict2.Persist(path); err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}

	// Pruning drops unconfirmed entries below the bar but never
	// confirmed ones
	dict3 := dictionary.New(&dictionary.Config{MinSightings: 3, Logger: log})
	if err := dict3.Load(path); err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if removed := dict3.Prune(5); removed != 1 {
		t.Errorf("Prune(5) removed %d, want 1", removed)
	}
	if err := dict3.Persist(path); err != nil {
		t.Fatalf("Failed to persist: %v", err)
	}

	dict4 := dictionary.New(&dictionary.Config{MinSightings: 3, Logger: log})
	if err := dict4.Load(path); err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if dict4.LearnedCount() != 1 {
		t.Errorf("LearnedCount = %d, want 1 after prune", dict4.LearnedCount())
	}
	if !dict4.Contains("haecceity") {
		t.Error("confirmed word should survive pruning")
	}
}

// TestPipelineQualityIntegration tests that the corrector fixes what
// the pipeline flags
func TestPipelineQualityIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log-level: error
dict-learned-path: ` + filepath.Join(tmpDir, "learned.yaml") + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	log, err := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	pipe, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	result := pipe.ProcessText("It was a beautlful morn-\ning, and the scholar knew it.\n")
	if result.LineBreak.CandidatesJoined != 1 {
		t.Errorf("CandidatesJoined = %d, want 1", result.LineBreak.CandidatesJoined)
	}
	if !strings.Contains(result.Text, "morning,") {
		t.Errorf("Text = %q, want the wrap rejoined", result.Text)
	}
	if result.Detection.WordsFlagged != 1 {
		t.Errorf("WordsFlagged = %d, want 1", result.Detection.WordsFlagged)
	}

	// The corrector repairs the flagged word against the same dictionary
	qcfg, err := quality.ForPreset(cfg.Correction.Preset)
	if err != nil {
		t.Fatalf("Failed to resolve preset: %v", err)
	}
	corrector := quality.New(pipe.Dictionary(), qcfg, log)

	fixed := corrector.CorrectOCRErrors(result.Text)
	if !strings.Contains(fixed.Text, "beautiful morning") {
		t.Errorf("corrected Text = %q, want beautlful repaired", fixed.Text)
	}
	if fixed.AppliedCount() != 1 {
		t.Errorf("AppliedCount = %d, want 1", fixed.AppliedCount())
	}
	if got := quality.Classify(fixed.Quality.Score); got != quality.ClassGood {
		t.Errorf("Classify = %q, want %q", got, quality.ClassGood)
	}
}

// TestEnvOverridesConfig tests EMEND_* environment overrides
func TestEnvOverridesConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log-level: error
dict-learned-path: ` + filepath.Join(tmpDir, "learned.yaml") + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if err := os.Setenv("EMEND_DETECT_MIN_CONFIDENCE", "0.9"); err != nil {
		t.Fatalf("Failed to set environment variable: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("EMEND_DETECT_MIN_CONFIDENCE")
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Detector.MinConfidenceToFlag != 0.9 {
		t.Errorf("MinConfidenceToFlag = %f, want env override 0.9", cfg.Detector.MinConfidenceToFlag)
	}
}
