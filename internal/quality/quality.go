// Package quality implements the synchronous scoring and correction
// layer used when re-OCR infrastructure is unavailable or undesired.
// It repairs only what a dictionary and a table of known scanner
// confusions can explain; everything subtler is scored and reported
// rather than rewritten.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
)

// Preset names accepted by ForPreset
const (
	PresetConservative = "conservative"
	PresetBalanced     = "balanced"
	PresetAggressive   = "aggressive"
)

// Config carries the correction thresholds and feature weights. The
// presets differ only in thresholds and the edit-distance cap; the
// weights are shared so loosening a preset can only add corrections,
// never re-rank them.
type Config struct {
	// ApplyThreshold is the confidence a suggestion needs before the
	// text is actually rewritten
	ApplyThreshold float64

	// ReviewThreshold is the confidence at which a suggestion is
	// recorded for review without being applied
	ReviewThreshold float64

	// MaxEditDistance caps how far an applied suggestion may drift
	// from the original form
	MaxEditDistance int

	// MinWordLength is the shortest token considered for scoring or
	// correction
	MinWordLength int

	// SkipCapitalized leaves capitalized tokens alone during
	// spellcheck; they are usually proper nouns no list enumerates
	SkipCapitalized bool

	// FrequencyBoost credits suggestions drawn from the common base
	// vocabulary
	FrequencyBoost float64

	// EditDistancePenalty debits each edit beyond the first
	EditDistancePenalty float64

	// ScholarlyBoost credits suggestions drawn from the scholarly
	// whitelist
	ScholarlyBoost float64

	// DiacriticPenalty debits corrections of words carrying accented
	// letters, the usual marker of deliberately foreign vocabulary
	DiacriticPenalty float64

	// FirstLetterBonus credits suggestions that keep the original's
	// first letter; scanners rarely corrupt the leading character
	FirstLetterBonus float64
}

// Conservative corrects only what it is nearly certain about
func Conservative() *Config {
	cfg := defaultWeights()
	cfg.ApplyThreshold = 0.9
	cfg.ReviewThreshold = 0.7
	cfg.MaxEditDistance = 1
	return cfg
}

// Balanced is the default trade-off
func Balanced() *Config {
	cfg := defaultWeights()
	cfg.ApplyThreshold = 0.75
	cfg.ReviewThreshold = 0.55
	cfg.MaxEditDistance = 2
	return cfg
}

// Aggressive favors recall; expect occasional miscorrections
func Aggressive() *Config {
	cfg := defaultWeights()
	cfg.ApplyThreshold = 0.6
	cfg.ReviewThreshold = 0.4
	cfg.MaxEditDistance = 2
	return cfg
}

// ForPreset resolves a preset by name. An empty name selects the
// balanced preset.
func ForPreset(name string) (*Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetBalanced:
		return Balanced(), nil
	case PresetConservative:
		return Conservative(), nil
	case PresetAggressive:
		return Aggressive(), nil
	}
	return nil, &UnknownPresetError{Name: name}
}

// UnknownPresetError reports a preset name ForPreset does not know
type UnknownPresetError struct {
	Name string
}

func (e *UnknownPresetError) Error() string {
	return "unknown correction preset: " + e.Name +
		" (valid: conservative, balanced, aggressive)"
}

func defaultWeights() *Config {
	return &Config{
		MinWordLength:       4,
		SkipCapitalized:     true,
		FrequencyBoost:      0.15,
		EditDistancePenalty: 0.2,
		ScholarlyBoost:      0.2,
		DiacriticPenalty:    0.3,
		FirstLetterBonus:    0.1,
	}
}

// Method identifies which correction path produced a correction
type Method string

const (
	// MethodPattern marks a confusion-table repair
	MethodPattern Method = "pattern"

	// MethodSpellcheck marks a dictionary-suggestion repair
	MethodSpellcheck Method = "spellcheck"
)

// Correction records one substitution, applied or proposed
type Correction struct {
	// Original is the token as it appeared in the text
	Original string

	// Corrected is the replacement, cased after the original
	Corrected string

	// Confidence is the score the correction earned
	Confidence float64

	// Method records which path produced the correction
	Method Method

	// Applied reports whether the text was actually rewritten.
	// Unapplied corrections cleared the review bar only.
	Applied bool
}

// QualityScore summarizes how damaged a text looks
type QualityScore struct {
	// Score is 1 minus the estimated error rate, in [0, 1]
	Score float64

	// EstimatedErrorRate is flagged words over examined words
	EstimatedErrorRate float64

	// WordsExamined counts the tokens long enough to judge
	WordsExamined int

	// Correctable lists flagged words a known confusion explains
	Correctable []string

	// Suspicious lists flagged words with no mechanical repair
	Suspicious []string

	// NoisyLines indexes (0-based) the lines whose character makeup
	// reads as font corruption rather than damaged prose
	NoisyLines []int
}

// CorrectionResult is the composed output of CorrectOCRErrors
type CorrectionResult struct {
	// Text is the corrected text
	Text string

	// Corrections lists every substitution applied or recorded
	Corrections []Correction

	// Quality scores the corrected text
	Quality QualityScore
}

// AppliedCount reports how many corrections were actually applied
func (r *CorrectionResult) AppliedCount() int {
	count := 0
	for _, c := range r.Corrections {
		if c.Applied {
			count++
		}
	}
	return count
}

// Classification buckets a quality score for downstream reporting
type Classification string

const (
	// ClassGood marks text clean enough to publish as-is
	ClassGood Classification = "good"

	// ClassMarginal marks text worth a human pass
	ClassMarginal Classification = "marginal"

	// ClassBad marks text that needs rescanning or re-OCR
	ClassBad Classification = "bad"
)

// Classification score floors. A page of scholarly prose runs about
// 350 words, so the good floor tolerates a handful of suspect words
// per page before the document stops counting as clean.
const (
	goodScoreFloor     = 0.95
	marginalScoreFloor = 0.80
)

// Classify buckets an overall quality score
func Classify(score float64) Classification {
	switch {
	case score >= goodScoreFloor:
		return ClassGood
	case score >= marginalScoreFloor:
		return ClassMarginal
	default:
		return ClassBad
	}
}

// Corrector applies the scoring and correction operations against one
// dictionary. Safe for concurrent use; it never mutates the
// dictionary.
type Corrector struct {
	dict   *dictionary.Dictionary
	cfg    *Config
	logger *logger.Logger
}

// New creates a Corrector. A nil config selects the balanced preset; a
// nil dictionary gets the built-in layers with no extra vocabulary.
func New(dict *dictionary.Dictionary, cfg *Config, log *logger.Logger) *Corrector {
	if dict == nil {
		dict = dictionary.New(nil)
	}
	if cfg == nil {
		cfg = Balanced()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Corrector{dict: dict, cfg: cfg, logger: log}
}

// ScoreQuality estimates how much OCR damage the text carries,
// separating the mechanically repairable words from the merely
// suspicious ones and screening out lines that are glyph soup
func (c *Corrector) ScoreQuality(text string) QualityScore {
	score := QualityScore{Score: 1.0}

	nonEmptyLines := 0
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmptyLines++
			if LineNoise(line) >= noisyLineThreshold {
				score.NoisyLines = append(score.NoisyLines, i)
			}
		}

		for _, tok := range tokenize(line) {
			if utf8.RuneCountInString(tok.text) < c.cfg.MinWordLength {
				continue
			}
			if !containsLetter(tok.text) || numericLike(tok.text) {
				continue
			}
			score.WordsExamined++

			if c.dict.Contains(tok.text) {
				continue
			}
			if _, ok := c.dict.PatternFix(tok.text); ok {
				score.Correctable = append(score.Correctable, tok.text)
			} else {
				score.Suspicious = append(score.Suspicious, tok.text)
			}
		}
	}

	wordRate := 0.0
	if score.WordsExamined > 0 {
		flagged := len(score.Correctable) + len(score.Suspicious)
		wordRate = float64(flagged) / float64(score.WordsExamined)
	}
	noiseRate := 0.0
	if nonEmptyLines > 0 {
		noiseRate = float64(len(score.NoisyLines)) / float64(nonEmptyLines)
	}

	// A garbled line drags the estimate down even when its glyph soup
	// never forms an examinable word
	score.Score = (1 - wordRate) * (1 - noiseRate)
	score.EstimatedErrorRate = 1 - score.Score
	return score
}
