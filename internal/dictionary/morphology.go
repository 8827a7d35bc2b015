package dictionary

import "strings"

// Affix inventories for morphological decomposition. Longest-first so
// "-logical" wins over "-al" when both match.
var knownSuffixes = []string{
	"ological", "isation", "ization", "ability", "ibility", "fulness",
	"lessness", "logical", "ousness", "ational", "iveness",
	"ation", "ition", "ment", "ness", "ance", "ence", "ship", "hood",
	"tion", "sion", "ical", "ious", "eous", "uous", "able", "ible",
	"ally", "ward", "wise", "ism", "ist", "ity", "ive", "ize", "ise",
	"ful", "less", "ous", "ing", "est", "ed", "er", "ly", "al", "ic",
	"es", "s",
}

var knownPrefixes = []string{
	"counter", "pseudo", "proto", "quasi", "inter", "intra", "super",
	"trans", "under", "micro", "macro", "multi", "anti", "fore", "meta",
	"over", "post", "semi", "dis", "mis", "neo", "non", "out", "pre",
	"sub", "un", "re",
}

// vowelRunes covers plain and accented vowels; y counts as a vowel for
// run analysis so words like "rhythm" are not penalized
const vowelRunes = "aeiouyàáâäæèéêëìíîïòóôöùúûüý"

// implausibleConsonantRunLength is the consonant-run length at which a
// word stops looking like language and starts looking like OCR noise
const implausibleConsonantRunLength = 5

// maxRepeatedRunLength is the longest same-character run a real word
// plausibly carries
const maxRepeatedRunLength = 3

// isVowel reports whether the rune is a vowel for pattern analysis
func isVowel(r rune) bool {
	return strings.ContainsRune(vowelRunes, r)
}

// isLetter reports whether the rune participates in pattern analysis
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

// PlausiblePattern checks the character-level statistics a real word
// exhibits: both vowels and consonants present, no long same-character
// run, no implausible consonant cluster.
func PlausiblePattern(word string) bool {
	word = strings.ToLower(word)
	if word == "" {
		return false
	}

	hasVowel := false
	hasConsonant := false
	for _, r := range word {
		if !isLetter(r) {
			continue
		}
		if isVowel(r) {
			hasVowel = true
		} else {
			hasConsonant = true
		}
	}
	// Single-letter words ("a", "I") carry no consonant
	if !hasVowel {
		return false
	}
	if !hasConsonant && len([]rune(word)) > 2 {
		return false
	}

	if longestRepeatedRun(word) > maxRepeatedRunLength {
		return false
	}
	if LongestConsonantRun(word) >= implausibleConsonantRunLength {
		return false
	}
	return true
}

// longestRepeatedRun returns the length of the longest run of one
// repeated character
func longestRepeatedRun(word string) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range word {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}

// LongestConsonantRun returns the length of the longest consecutive
// consonant sequence in the word
func LongestConsonantRun(word string) int {
	longest, run := 0, 0
	for _, r := range strings.ToLower(word) {
		if isLetter(r) && !isVowel(r) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// MorphologicallyValid reports whether the word decomposes into a
// recognized stem plus a recognized affix while keeping plausible
// character-pattern statistics. This is the signal that rescues
// regular derivations ("developmental") the base list cannot
// enumerate.
func (d *Dictionary) MorphologicallyValid(word string) bool {
	key := normalize(word)
	if len(key) < 4 {
		return false
	}
	if !PlausiblePattern(key) {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.decomposeLocked(key, true)
}

// decomposeLocked tries suffix and prefix stripping against the stored
// layers. allowChain permits one prefix strip followed by one suffix
// strip ("transhistorical" -> "historical"; "preconditions" ->
// "condition" + "s").
func (d *Dictionary) decomposeLocked(key string, allowChain bool) bool {
	for _, suffix := range knownSuffixes {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		stem := key[:len(key)-len(suffix)]
		if len(stem) < 3 {
			continue
		}
		if d.stemRecognizedLocked(stem) {
			return true
		}
	}

	for _, prefix := range knownPrefixes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		remainder := key[len(prefix):]
		if len(remainder) < 4 {
			continue
		}
		if d.knownWordLocked(remainder) {
			return true
		}
		if allowChain && d.decomposeLocked(remainder, false) {
			return true
		}
	}

	return false
}

// stemRecognizedLocked checks a stripped stem against the stored
// layers, restoring the spelling changes regular suffixation makes:
// dropped final e ("creative" -> "creat" -> "create") and doubled
// final consonant ("submitted" -> "submitt" -> "submit").
func (d *Dictionary) stemRecognizedLocked(stem string) bool {
	if d.knownWordLocked(stem) {
		return true
	}
	if d.knownWordLocked(stem + "e") {
		return true
	}
	runes := []rune(stem)
	n := len(runes)
	if n >= 3 && runes[n-1] == runes[n-2] && d.knownWordLocked(string(runes[:n-1])) {
		return true
	}
	// "-ies"/"-ied" style stems: "studi" -> "study"
	if n >= 3 && runes[n-1] == 'i' && d.knownWordLocked(string(runes[:n-1])+"y") {
		return true
	}
	return false
}
