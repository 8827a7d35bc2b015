// Package detect flags words that look like OCR errors. The detector
// is a selector, not a corrector: it reports suspect words with the
// reasons and a confidence, and something downstream decides what to
// do about them. Detection is read-only and deterministic, so the same
// text always yields the same candidates.
package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
)

// Reason tags attached to detection candidates.
const (
	ReasonNotInDictionary = "not-in-dictionary"
	ReasonFailsMorphology = "fails-morphology"
	ReasonDigitInWord     = "digit-in-word"
	ReasonMixedCase       = "mixed-case-mid-word"
	ReasonConsonantRun    = "consonant-run"
)

// Signal weights. Independent signals accumulate, so a word that is
// unknown, morphologically broken, and digit-riddled scores far above
// one that merely misses the dictionary. Mid-word case mixing carries
// enough weight to flag on its own: dictionary lookup is
// case-insensitive, so "beauTiful" resolves as a known word and the
// case signal is the only one left to catch it.
const (
	weightNotInDictionary = 0.4
	weightFailsMorphology = 0.2
	weightDigitInWord     = 0.3
	weightMixedCase       = 0.5
	weightConsonantRun    = 0.3
)

// consonantRunThreshold is the consonant-run length that counts as an
// independent corruption signal
const consonantRunThreshold = 5

// Candidate is one flagged word with its location and evidence.
type Candidate struct {
	Word       string
	Line       int
	Offset     int
	Reasons    []string
	Confidence float64
}

// Lexicon is the dictionary surface the detector consults. Both
// operations are read-only.
type Lexicon interface {
	Lookup(word string) (dictionary.Entry, bool)
	MorphologicallyValid(word string) bool
}

// Config carries the detector thresholds.
type Config struct {
	// MinConfidenceToFlag is the accumulated confidence below which a
	// word is not reported
	MinConfidenceToFlag float64

	// MinWordLength is the rune length below which words are never
	// examined. Short tokens carry too little signal.
	MinWordLength int

	// Logger for detection summaries
	Logger *logger.Logger
}

const (
	defaultMinConfidence = 0.5
	defaultMinWordLength = 4
)

// Detector flags suspect words in extracted text.
type Detector struct {
	dict          Lexicon
	minConfidence float64
	minWordLength int
	logger        *logger.Logger
}

// New creates a Detector backed by the given lexicon.
func New(dict Lexicon, cfg *Config) *Detector {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	minConfidence := cfg.MinConfidenceToFlag
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	minLength := cfg.MinWordLength
	if minLength <= 0 {
		minLength = defaultMinWordLength
	}
	return &Detector{
		dict:          dict,
		minConfidence: minConfidence,
		minWordLength: minLength,
		logger:        log,
	}
}

// Detect scans multi-line text and returns candidates in reading
// order. Line numbers are zero-based indices into the text's lines.
func (d *Detector) Detect(text string) []Candidate {
	var candidates []Candidate
	for i, line := range strings.Split(text, "\n") {
		candidates = append(candidates, d.DetectLine(line, i)...)
	}
	return candidates
}

// DetectLine scans a single line, reporting candidates under the given
// line number. Offsets are byte positions within the line.
func (d *Detector) DetectLine(line string, lineNumber int) []Candidate {
	var candidates []Candidate
	for _, tok := range tokenize(line) {
		if utf8.RuneCountInString(tok.text) < d.minWordLength {
			continue
		}
		if !containsLetter(tok.text) || numericLike(tok.text) {
			// Page numbers, years, "1990s", "19th"
			continue
		}
		reasons, confidence := d.evaluate(tok.text)
		if confidence < d.minConfidence {
			continue
		}
		candidates = append(candidates, Candidate{
			Word:       tok.text,
			Line:       lineNumber,
			Offset:     tok.offset,
			Reasons:    reasons,
			Confidence: confidence,
		})
	}
	return candidates
}

// ExaminedCount reports how many tokens Detect actually evaluates in
// the text, after the length and numeric skips. Reported alongside the
// flagged count so run statistics show the denominator.
func (d *Detector) ExaminedCount(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		for _, tok := range tokenize(line) {
			if utf8.RuneCountInString(tok.text) < d.minWordLength {
				continue
			}
			if !containsLetter(tok.text) || numericLike(tok.text) {
				continue
			}
			count++
		}
	}
	return count
}

// evaluate runs every signal against the word in a fixed order and
// accumulates the confidence, capped at 1.
func (d *Detector) evaluate(word string) ([]string, float64) {
	var reasons []string
	var confidence float64

	if _, known := d.dict.Lookup(word); !known {
		reasons = append(reasons, ReasonNotInDictionary)
		confidence += weightNotInDictionary
		// Morphology can rescue a regular derivation the dictionary
		// does not enumerate; when it cannot, that is a second signal
		if !d.dict.MorphologicallyValid(word) {
			reasons = append(reasons, ReasonFailsMorphology)
			confidence += weightFailsMorphology
		}
	}
	if containsDigit(word) {
		reasons = append(reasons, ReasonDigitInWord)
		confidence += weightDigitInWord
	}
	if hasMidWordUpper(word) {
		reasons = append(reasons, ReasonMixedCase)
		confidence += weightMixedCase
	}
	if dictionary.LongestConsonantRun(word) >= consonantRunThreshold {
		reasons = append(reasons, ReasonConsonantRun)
		confidence += weightConsonantRun
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return reasons, confidence
}

type token struct {
	text   string
	offset int
}

// tokenize splits a line into maximal letter-and-digit runs. Hyphens
// and apostrophes act as separators; their halves are judged alone.
func tokenize(line string) []token {
	var tokens []token
	start := -1
	for i, r := range line {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: line[start:i], offset: start})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: line[start:], offset: start})
	}
	return tokens
}

func containsLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// numericLike reports tokens that are numbers wearing a common suffix:
// "1990s", "19th", "2nd", "21st", "3rd". They read as words to the
// tokenizer but are not OCR errors.
func numericLike(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return false
	}
	switch strings.ToLower(s[i:]) {
	case "", "s", "th", "st", "nd", "rd":
		return true
	}
	return false
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// hasMidWordUpper reports an uppercase letter after the first position
// in a word that also carries lowercase. All-caps headings pass; a
// leading capital passes; "beauTiful" does not.
func hasMidWordUpper(word string) bool {
	hasLower := false
	midUpper := false
	for i, r := range word {
		if unicode.IsLower(r) {
			hasLower = true
		}
		if i > 0 && unicode.IsUpper(r) {
			midUpper = true
		}
	}
	return hasLower && midUpper
}
