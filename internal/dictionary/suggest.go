package dictionary

// Single-character OCR confusions worth trying before any distance
// scan. These encode scanner behavior, not typing behavior, which is
// why they differ from spellcheck edit tables.
var runeConfusions = map[rune]string{
	'0': "o",
	'1': "il",
	'5': "s",
	'6': "b",
	'8': "b",
	'l': "i",
	'i': "l",
	'c': "e",
	'e': "c",
}

// Digraph confusions: character pairs scanners habitually merge or
// split. Ordered so variant generation is deterministic.
var pairConfusions = []struct {
	from string
	to   []string
}{
	{"rn", []string{"m"}},
	{"cl", []string{"d"}},
	{"vv", []string{"w"}},
	{"ii", []string{"u", "n"}},
	{"ni", []string{"m"}},
	{"m", []string{"rn"}},
	{"w", []string{"vv"}},
	{"d", []string{"cl"}},
}

// maxSuggestLength bounds the distance scan; anything longer is more
// likely a run-together phrase than a single misread word
const maxSuggestLength = 24

// PatternFix proposes a confusion-table repair for a rejected token.
// Unlike Suggest it never falls back to a distance scan, so a returned
// fix is always explained by a known scanner confusion.
func (d *Dictionary) PatternFix(word string) (string, bool) {
	key := normalize(word)
	if key == "" || len(key) > maxSuggestLength {
		return "", false
	}
	if d.knownWord(key) {
		return "", false
	}
	for _, variant := range confusionVariants(key) {
		if d.knownWord(variant) {
			return variant, true
		}
	}
	return "", false
}

// EditDistance reports the Levenshtein distance between two words
func EditDistance(a, b string) int {
	return levenshteinDistance(a, b)
}

// Suggest proposes a dictionary word for a rejected token, or reports
// that nothing is close enough. Confusion-substitution variants are
// tried first because they carry the highest precision; a bounded
// edit-distance scan over the stored vocabulary is the fallback.
func (d *Dictionary) Suggest(word string) (string, bool) {
	key := normalize(word)
	if key == "" || len(key) > maxSuggestLength {
		return "", false
	}
	if d.knownWord(key) {
		return "", false
	}

	for _, variant := range confusionVariants(key) {
		if d.knownWord(variant) {
			return variant, true
		}
	}

	maxDist := 2
	if len(key) <= 4 {
		maxDist = 1
	}

	best := ""
	bestDist := maxDist + 1
	scan := func(candidate string) {
		diff := len(candidate) - len(key)
		if diff < -2 || diff > 2 {
			return
		}
		dist := levenshteinDistance(key, candidate)
		switch {
		case dist < bestDist:
			best, bestDist = candidate, dist
		case dist == bestDist && best != "" && dist <= maxDist:
			// Prefer a candidate that keeps the first letter; OCR
			// rarely corrupts the leading character
			if candidate[0] == key[0] && best[0] != key[0] {
				best = candidate
			}
		}
	}

	for _, candidate := range baseWordList {
		scan(candidate)
	}
	for _, candidate := range d.whitelistKey {
		scan(candidate)
	}

	if bestDist > maxDist {
		return "", false
	}
	return best, true
}

// confusionVariants generates every single-substitution variant of the
// word under the OCR confusion tables
func confusionVariants(word string) []string {
	seen := make(map[string]struct{})
	var variants []string
	add := func(v string) {
		if v == word {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	runes := []rune(word)
	for i, r := range runes {
		replacements, ok := runeConfusions[r]
		if !ok {
			continue
		}
		for _, repl := range replacements {
			variant := make([]rune, len(runes))
			copy(variant, runes)
			variant[i] = repl
			add(string(variant))
		}
	}

	for _, confusion := range pairConfusions {
		pair := confusion.from
		for i := 0; i+len(pair) <= len(word); i++ {
			if word[i:i+len(pair)] != pair {
				continue
			}
			for _, repl := range confusion.to {
				add(word[:i] + repl + word[i+len(pair):])
			}
		}
	}

	return variants
}

// levenshteinDistance computes edit distance with the two-row
// dynamic-programming formulation
func levenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
