package quality

import (
	"strings"
	"testing"
)

func TestForPreset(t *testing.T) {
	tests := []struct {
		name      string
		preset    string
		wantApply float64
		wantErr   bool
	}{
		{name: "conservative", preset: "conservative", wantApply: 0.9},
		{name: "balanced", preset: "balanced", wantApply: 0.75},
		{name: "aggressive", preset: "aggressive", wantApply: 0.6},
		{name: "empty selects balanced", preset: "", wantApply: 0.75},
		{name: "case folded", preset: "Conservative", wantApply: 0.9},
		{name: "unknown", preset: "reckless", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ForPreset(tt.preset)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), "reckless") {
					t.Errorf("error should name the preset: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForPreset(%q) error = %v", tt.preset, err)
			}
			if cfg.ApplyThreshold != tt.wantApply {
				t.Errorf("ApplyThreshold = %v, want %v", cfg.ApplyThreshold, tt.wantApply)
			}
		})
	}
}

func TestPresets_ThresholdOrdering(t *testing.T) {
	conservative, balanced, aggressive := Conservative(), Balanced(), Aggressive()

	if !(conservative.ApplyThreshold > balanced.ApplyThreshold &&
		balanced.ApplyThreshold > aggressive.ApplyThreshold) {
		t.Error("apply thresholds should tighten from aggressive to conservative")
	}
	if conservative.MaxEditDistance > balanced.MaxEditDistance {
		t.Error("conservative should not allow farther edits than balanced")
	}

	// The weights are shared; only thresholds separate the presets
	if conservative.FrequencyBoost != aggressive.FrequencyBoost ||
		conservative.EditDistancePenalty != aggressive.EditDistancePenalty {
		t.Error("presets should share feature weights")
	}
}

func TestScoreQuality_CleanText(t *testing.T) {
	c := New(nil, nil, nil)

	score := c.ScoreQuality("It was a beautiful morning in the city.")
	if score.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", score.Score)
	}
	if score.EstimatedErrorRate != 0 {
		t.Errorf("EstimatedErrorRate = %v, want 0", score.EstimatedErrorRate)
	}
	if len(score.Correctable) != 0 || len(score.Suspicious) != 0 {
		t.Errorf("clean text produced flags: %+v", score)
	}
	if score.WordsExamined == 0 {
		t.Error("expected examined words")
	}
}

func TestScoreQuality_SeparatesCorrectableFromSuspicious(t *testing.T) {
	c := New(nil, nil, nil)

	score := c.ScoreQuality("The beautlful morning was xqzvp throughout.")

	if len(score.Correctable) != 1 || score.Correctable[0] != "beautlful" {
		t.Errorf("Correctable = %v, want [beautlful]", score.Correctable)
	}
	if len(score.Suspicious) != 1 || score.Suspicious[0] != "xqzvp" {
		t.Errorf("Suspicious = %v, want [xqzvp]", score.Suspicious)
	}
	if score.Score >= 1.0 {
		t.Errorf("damaged text scored %v", score.Score)
	}

	wantRate := 2.0 / float64(score.WordsExamined)
	if score.EstimatedErrorRate != wantRate {
		t.Errorf("EstimatedErrorRate = %v, want %v", score.EstimatedErrorRate, wantRate)
	}
}

func TestScoreQuality_EmptyText(t *testing.T) {
	c := New(nil, nil, nil)

	score := c.ScoreQuality("")
	if score.Score != 1.0 || score.WordsExamined != 0 {
		t.Errorf("empty text score = %+v", score)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  Classification
	}{
		{1.0, ClassGood},
		{0.97, ClassGood},
		{0.95, ClassGood},
		{0.94, ClassMarginal},
		{0.85, ClassMarginal},
		{0.80, ClassMarginal},
		{0.79, ClassBad},
		{0.5, ClassBad},
		{0, ClassBad},
	}

	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
