package quality

import (
	"math"
	"strings"
	"unicode"
)

// noisyLineThreshold is the LineNoise score at which a line counts as
// garbled rather than merely damaged
const noisyLineThreshold = 0.5

// lowEntropyBits marks the character-entropy floor under which a long
// line is almost certainly a rule, border, or repeated-glyph artifact
const lowEntropyBits = 1.5

// minEntropyLength is the shortest line the entropy signal judges;
// below it the distribution is too small to mean anything
const minEntropyLength = 8

// LineNoise rates how garbled a single line looks, 0 (clean prose) to
// 1 (glyph soup). Font corruption in scanned books produces lines the
// word-level checks never see: symbol runs, vowelless pseudo-words,
// and repeated-character rules. Those are what this measures.
func LineNoise(line string) float64 {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0
	}

	var total, symbols int
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !isProsePunct(r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	symbolRatio := float64(symbols) / float64(total)

	var words, vowelless int
	for _, field := range strings.Fields(trimmed) {
		letters := 0
		hasVowel := false
		for _, r := range field {
			if !unicode.IsLetter(r) {
				continue
			}
			letters++
			if strings.ContainsRune("aeiouyAEIOUY", r) || (r > 127 && unicode.IsLetter(r)) {
				hasVowel = true
			}
		}
		if letters < 3 {
			continue
		}
		words++
		if !hasVowel {
			vowelless++
		}
	}
	vowellessRatio := 0.0
	if words > 0 {
		vowellessRatio = float64(vowelless) / float64(words)
	}

	noise := 0.5*symbolRatio + 0.5*vowellessRatio

	if total >= minEntropyLength && charEntropy(trimmed) < lowEntropyBits {
		if noise < 0.8 {
			noise = 0.8
		}
	}

	if noise > 1 {
		noise = 1
	}
	return noise
}

// isProsePunct reports punctuation that ordinary prose carries; it
// does not count toward the symbol ratio
func isProsePunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '\'', '"', '-', '(', ')', '[', ']',
		'‘', '’', '“', '”', '–', '—', '…':
		return true
	}
	return false
}

// charEntropy computes the Shannon entropy of the line's non-space
// rune distribution, in bits
func charEntropy(line string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		counts[r]++
		total++
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
