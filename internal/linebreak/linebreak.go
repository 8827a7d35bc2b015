// Package linebreak rejoins words that page layout split across line
// endings. Hyphenated wraps ("beau-" / "tiful") and unhyphenated wraps
// evidenced by margin-flush geometry are examined pair by pair, and a
// join is applied only when the dictionary recognizes the joined form.
// Candidate pairs never span text blocks: a fragment at the end of a
// paragraph and a word at the start of a footnote are unrelated even
// when they happen to be adjacent in reading order.
package linebreak

import (
	"strings"
	"unicode"

	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/page"
)

// Kind identifies how a candidate pair was detected.
type Kind string

const (
	// KindHyphen marks a wrap with an explicit trailing hyphen
	KindHyphen Kind = "hyphen"
	// KindImplicit marks a wrap inferred from margin-flush geometry
	KindImplicit Kind = "implicit"
)

// Candidate is one examined fragment pair together with the verdict.
type Candidate struct {
	BlockID        int
	FirstLine      int
	SecondLine     int
	FirstFragment  string
	SecondFragment string
	Joined         string
	Kind           Kind
	Accepted       bool
	Reason         string
}

// Stats summarizes one rejoin pass.
type Stats struct {
	CandidatesExamined int
	CandidatesJoined   int
	CandidatesRejected int
}

// Validator is the dictionary surface the rejoiner consults.
type Validator interface {
	Contains(word string) bool
}

// defaultFlushTolerance is how close to the block margin a line edge
// must sit, in PDF points, to count as flush
const defaultFlushTolerance = 6.0

// Config carries the tunable parts of the rejoiner.
type Config struct {
	// FlushTolerance is the margin distance, in points, under which a
	// line counts as flush with the block edge
	FlushTolerance float64

	// Logger for rejoin decisions
	Logger *logger.Logger
}

// Rejoiner detects and repairs line-wrap word splits.
type Rejoiner struct {
	dict           Validator
	flushTolerance float64
	logger         *logger.Logger
}

// New creates a Rejoiner backed by the given dictionary.
func New(dict Validator, cfg *Config) *Rejoiner {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	tolerance := cfg.FlushTolerance
	if tolerance <= 0 {
		tolerance = defaultFlushTolerance
	}
	return &Rejoiner{
		dict:           dict,
		flushTolerance: tolerance,
		logger:         log,
	}
}

// FindCandidates examines every adjacent line pair inside each block
// and returns the candidates with their verdicts. The page is not
// modified.
func (r *Rejoiner) FindCandidates(p *page.Page) []Candidate {
	var candidates []Candidate
	for bi := range p.Blocks {
		block := &p.Blocks[bi]
		for li := 0; li+1 < len(block.Lines); li++ {
			cand, ok := r.examinePair(block, block.Lines[li], block.Lines[li+1])
			if !ok {
				continue
			}
			candidates = append(candidates, cand)
		}
	}
	return candidates
}

// Rejoin applies every accepted candidate to the page in place and
// returns the pass statistics. Lines emptied by a join are removed
// from their block; surviving lines keep their original numbers.
func (r *Rejoiner) Rejoin(p *page.Page) Stats {
	var stats Stats
	for bi := range p.Blocks {
		block := &p.Blocks[bi]
		li := 0
		for li+1 < len(block.Lines) {
			cand, ok := r.examinePair(block, block.Lines[li], block.Lines[li+1])
			if !ok {
				li++
				continue
			}
			stats.CandidatesExamined++
			if !cand.Accepted {
				stats.CandidatesRejected++
				r.logger.WithFields(
					"block", cand.BlockID,
					"fragments", cand.FirstFragment+"/"+cand.SecondFragment,
					"reason", cand.Reason,
				).Debug("Rejoin candidate rejected")
				li++
				continue
			}
			r.applyJoin(block, li, cand)
			stats.CandidatesJoined++
			r.logger.WithFields(
				"block", cand.BlockID,
				"joined", cand.Joined,
				"kind", string(cand.Kind),
			).Debug("Rejoined wrapped word")
			li++
		}
	}
	return stats
}

// RejoinText runs the degraded plain-text mode: no layout geometry is
// available, so only explicit trailing hyphens form candidates and
// blank lines stand in for block boundaries.
func (r *Rejoiner) RejoinText(text string) (string, Stats) {
	lines := strings.Split(text, "\n")
	var stats Stats

	i := 0
	for i+1 < len(lines) {
		first, second := lines[i], lines[i+1]
		if strings.TrimSpace(first) == "" || strings.TrimSpace(second) == "" {
			i++
			continue
		}

		fragA, hyphen := trailingFragment(first)
		if fragA == "" || !hyphen {
			i++
			continue
		}
		fragB, _, _ := splitLeading(second)
		if fragB == "" || !startsLower(fragB) {
			i++
			continue
		}

		stats.CandidatesExamined++
		cand := r.decide(fragA, fragB, KindHyphen)
		if !cand.Accepted {
			stats.CandidatesRejected++
			i++
			continue
		}

		joinedFirst, joinedSecond, emptied := joinLines(first, second, cand.Joined)
		lines[i] = joinedFirst
		if emptied {
			lines = append(lines[:i+1], lines[i+2:]...)
		} else {
			lines[i+1] = joinedSecond
		}
		stats.CandidatesJoined++
		i++
	}

	return strings.Join(lines, "\n"), stats
}

// examinePair decides whether two adjacent lines form a candidate and,
// if so, validates it. The bool result reports candidate formation,
// not acceptance.
func (r *Rejoiner) examinePair(block *page.Block, first, second page.Line) (Candidate, bool) {
	fragA, hyphen := trailingFragment(first.Text)
	if fragA == "" {
		return Candidate{}, false
	}
	fragB, _, _ := splitLeading(second.Text)
	if fragB == "" || !startsLower(fragB) {
		return Candidate{}, false
	}

	kind := KindHyphen
	if !hyphen {
		// An unhyphenated wrap needs geometric evidence and an
		// incomplete-looking trailing fragment
		if !block.EndsFlushRight(first, r.flushTolerance) ||
			!block.StartsFlushLeft(second, r.flushTolerance) {
			return Candidate{}, false
		}
		if r.dict.Contains(fragA) {
			return Candidate{}, false
		}
		kind = KindImplicit
	}

	cand := r.decide(fragA, fragB, kind)
	cand.BlockID = block.ID
	cand.FirstLine = first.Number
	cand.SecondLine = second.Number
	return cand, true
}

// decide builds the candidate and applies the validation policy: the
// joined form must be recognized, and a pair whose halves both stand
// alone as words is left split because the hyphen may be deliberate
// ("in-" / "side" legitimately carries the sense of "in-side").
func (r *Rejoiner) decide(fragA, fragB string, kind Kind) Candidate {
	cand := Candidate{
		FirstFragment:  fragA,
		SecondFragment: fragB,
		Joined:         fragA + fragB,
		Kind:           kind,
	}

	if !r.dict.Contains(cand.Joined) {
		cand.Reason = "joined form not recognized"
		return cand
	}
	if r.dict.Contains(fragA) && r.dict.Contains(fragB) {
		cand.Reason = "both fragments stand alone"
		return cand
	}

	cand.Accepted = true
	return cand
}

// applyJoin rewrites the pair at index li inside the block, moving the
// completed word onto the first line and removing the second line when
// nothing of it remains.
func (r *Rejoiner) applyJoin(block *page.Block, li int, cand Candidate) {
	first := block.Lines[li].Text
	second := block.Lines[li+1].Text

	joinedFirst, joinedSecond, emptied := joinLines(first, second, cand.Joined)
	block.Lines[li].Text = joinedFirst
	if emptied {
		block.Lines = append(block.Lines[:li+1], block.Lines[li+2:]...)
		return
	}
	block.Lines[li+1].Text = joinedSecond
}

// joinLines performs the textual surgery for one accepted join: the
// trailing fragment of the first line becomes the joined word, the
// leading token of the second line disappears, and any punctuation
// that clung to that token follows the joined word.
func joinLines(first, second, joined string) (string, string, bool) {
	trimmed := strings.TrimRight(first, " \t")
	cut := strings.LastIndexAny(trimmed, " \t")
	prefix := ""
	if cut >= 0 {
		prefix = trimmed[:cut+1]
	}

	_, punct, rest := splitLeading(second)
	return prefix + joined + punct, rest, rest == ""
}

// trailingFragment extracts the last whitespace-delimited token of a
// line. The bool result reports whether the token carried an explicit
// wrap hyphen, which is stripped. Tokens containing anything besides
// letters produce no fragment.
func trailingFragment(text string) (string, bool) {
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		return "", false
	}
	cut := strings.LastIndexAny(trimmed, " \t")
	token := trimmed[cut+1:]

	hyphen := false
	runes := []rune(token)
	if len(runes) > 0 && isWrapHyphen(runes[len(runes)-1]) {
		hyphen = true
		token = string(runes[:len(runes)-1])
	}
	if !isAllLetters(token) {
		return "", false
	}
	return token, hyphen
}

// splitLeading splits the first token off a line, returning the
// token's letter core, the punctuation attached to it, and the rest of
// the line. A token whose core is not purely letters yields nothing.
func splitLeading(text string) (core, punct, rest string) {
	trimmed := strings.TrimLeft(text, " \t")
	if trimmed == "" {
		return "", "", ""
	}

	end := strings.IndexFunc(trimmed, unicode.IsSpace)
	token := trimmed
	if end >= 0 {
		token = trimmed[:end]
		rest = strings.TrimLeft(trimmed[end:], " \t")
	}

	core = strings.TrimRightFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if core == "" || !isAllLetters(core) {
		return "", "", rest
	}
	punct = token[len(core):]
	return core, punct, rest
}

// isWrapHyphen reports whether the rune is a hyphen form used for line
// wrapping. Dashes are excluded: an em dash at a line end is rhetoric,
// not a wrap.
func isWrapHyphen(r rune) bool {
	switch r {
	case '-', '‐', '­':
		return true
	}
	return false
}

func isAllLetters(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) == -1
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}
