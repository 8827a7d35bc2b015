package quality

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/platinummonkey/emend/internal/dictionary"
)

// patternConfidence is the confidence assigned to confusion-table
// repairs. The table encodes observed scanner behavior and the repair
// must land on a dictionary word, so these sit near the top of the
// scale regardless of preset.
const patternConfidence = 0.95

// suggestionBase is the starting confidence for any dictionary
// suggestion; the configured weights move it from there
const suggestionBase = 0.6

// CorrectKnownPatterns rewrites only the words a known scanner
// confusion explains: "tl" read for "ti", "rn" for "m", digits for
// look-alike letters. Casing follows the original.
func (c *Corrector) CorrectKnownPatterns(text string) (string, []Correction) {
	var corrections []Correction
	out := rewriteTokens(text, func(word string) (string, bool) {
		if !c.correctable(word) {
			return "", false
		}
		fix, ok := c.dict.PatternFix(word)
		if !ok {
			return "", false
		}
		corrected := matchCase(word, fix)
		corrections = append(corrections, Correction{
			Original:   word,
			Corrected:  corrected,
			Confidence: patternConfidence,
			Method:     MethodPattern,
			Applied:    true,
		})
		return corrected, true
	})

	if len(corrections) > 0 {
		c.logger.WithFields("corrections", len(corrections)).Debug("Applied mechanical pattern corrections")
	}
	return out, corrections
}

// CorrectWithSpellcheck rewrites words the dictionary can suggest a
// close replacement for. Capitalized tokens are skipped by default
// (likely proper nouns), digit-bearing tokens belong to the pattern
// path, and a suggestion farther than the configured edit distance is
// never applied. Suggestions clearing only the review threshold are
// recorded without rewriting.
func (c *Corrector) CorrectWithSpellcheck(text string) (string, []Correction) {
	var corrections []Correction
	out := rewriteTokens(text, func(word string) (string, bool) {
		if !c.correctable(word) || containsDigit(word) {
			return "", false
		}
		if c.cfg.SkipCapitalized && startsUpper(word) {
			return "", false
		}

		suggestion, ok := c.dict.Suggest(word)
		if !ok {
			return "", false
		}
		if dictionary.EditDistance(strings.ToLower(word), suggestion) > c.cfg.MaxEditDistance {
			return "", false
		}

		confidence := c.scoreSuggestion(word, suggestion)
		if confidence < c.cfg.ReviewThreshold {
			return "", false
		}

		corrected := matchCase(word, suggestion)
		applied := confidence >= c.cfg.ApplyThreshold
		corrections = append(corrections, Correction{
			Original:   word,
			Corrected:  corrected,
			Confidence: confidence,
			Method:     MethodSpellcheck,
			Applied:    applied,
		})
		if !applied {
			return "", false
		}
		return corrected, true
	})

	if len(corrections) > 0 {
		c.logger.WithFields("corrections", len(corrections)).Debug("Ran spellcheck corrections")
	}
	return out, corrections
}

// CorrectOCRErrors composes the two correction paths: mechanical
// patterns first, then spellcheck over what remains. The returned
// quality score describes the corrected text.
func (c *Corrector) CorrectOCRErrors(text string) CorrectionResult {
	patterned, patternCorrections := c.CorrectKnownPatterns(text)
	final, spellCorrections := c.CorrectWithSpellcheck(patterned)

	result := CorrectionResult{
		Text:        final,
		Corrections: append(patternCorrections, spellCorrections...),
		Quality:     c.ScoreQuality(final),
	}

	c.logger.WithFields(
		"applied", result.AppliedCount(),
		"recorded", len(result.Corrections),
		"score", result.Quality.Score,
	).Debug("Corrected OCR errors")
	return result
}

// correctable applies the shared token gates: long enough to judge,
// carries letters, not a numeric form, and not already vocabulary
func (c *Corrector) correctable(word string) bool {
	if utf8.RuneCountInString(word) < c.cfg.MinWordLength {
		return false
	}
	if !containsLetter(word) || numericLike(word) {
		return false
	}
	return !c.dict.Contains(word)
}

// scoreSuggestion rates how likely the suggestion repairs the
// original. The dictionary already guarantees closeness; the weights
// separate a plausible misread from a legitimate unknown word.
func (c *Corrector) scoreSuggestion(original, suggestion string) float64 {
	confidence := suggestionBase

	dist := dictionary.EditDistance(strings.ToLower(original), suggestion)
	if dist > 1 {
		confidence -= c.cfg.EditDistancePenalty * float64(dist-1)
	}

	if entry, ok := c.dict.Lookup(suggestion); ok {
		switch entry.Source {
		case dictionary.SourceBase:
			confidence += c.cfg.FrequencyBoost
		case dictionary.SourceWhitelist:
			confidence += c.cfg.ScholarlyBoost
		}
	}

	if firstRune(original) == firstRune(suggestion) {
		confidence += c.cfg.FirstLetterBonus
	}
	if hasDiacritics(original) {
		confidence -= c.cfg.DiacriticPenalty
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

type token struct {
	text   string
	offset int
}

// tokenize splits a line into maximal letter-and-digit runs, the same
// word shape the detector judges
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

// rewriteTokens walks the text and lets fix propose a replacement for
// each word token; everything between tokens passes through verbatim
func rewriteTokens(text string, fix func(word string) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(text))

	pos := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		for _, tok := range tokenize(line) {
			b.WriteString(line[pos:tok.offset])
			if repl, ok := fix(tok.text); ok {
				b.WriteString(repl)
			} else {
				b.WriteString(tok.text)
			}
			pos = tok.offset + len(tok.text)
		}
		b.WriteString(line[pos:])
		pos = 0
	}
	return b.String()
}

func containsLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// numericLike reports tokens that are numbers wearing a common
// suffix: "1990s", "19th", "2nd". They read as words to the tokenizer
// but are not OCR errors.
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

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// hasDiacritics reports letters outside plain ASCII, the usual marker
// of deliberately foreign vocabulary
func hasDiacritics(s string) bool {
	for _, r := range s {
		if r > 127 && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// matchCase shapes the replacement after the original's casing:
// all-caps stays all-caps, a leading capital is restored, anything
// else keeps the dictionary's lower-case form
func matchCase(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	if original == strings.ToUpper(original) && original != strings.ToLower(original) {
		return strings.ToUpper(replacement)
	}
	if startsUpper(original) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(strings.ToLower(s))
	return r
}
