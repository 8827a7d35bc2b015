// Package dictionary implements the adaptive vocabulary oracle the
// pipeline consults before treating a token as an OCR error.
//
// A word is accepted when any one of four signals passes: the static
// base dictionary, the scholarly whitelist, morphological validation,
// or the learned layer. Each signal alone misjudges scholarly prose
// badly (plain lookup flags roughly 40% of legitimate philosophy
// vocabulary); the OR-combination is what keeps both false positives
// and false negatives tolerable.
package dictionary

import (
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/emend/internal/logger"
)

// Source identifies where a dictionary entry came from
type Source string

const (
	// SourceBase marks entries from the static base dictionary
	SourceBase Source = "base"

	// SourceWhitelist marks entries from the scholarly whitelist
	SourceWhitelist Source = "scholarly-whitelist"

	// SourceLearned marks entries accumulated from document evidence
	SourceLearned Source = "learned"
)

// Entry is a stored vocabulary item with its provenance
type Entry struct {
	// Word is the normalized (lower-cased) surface form
	Word string

	// Source records which layer accepted the word
	Source Source

	// Confidence is the acceptance confidence (0-1)
	Confidence float64
}

// LearnedEntry tracks the evidence behind one learned word.
// This is the only dictionary state that is ever persisted.
type LearnedEntry struct {
	// Word is the normalized surface form
	Word string `yaml:"word"`

	// Sightings counts verbatim observations in document text
	Sightings int `yaml:"sightings"`

	// Confirmed is set when a higher-confidence correction elsewhere
	// validated the word
	Confirmed bool `yaml:"confirmed,omitempty"`
}

// Evidence is the support a caller supplies when teaching the
// dictionary a word
type Evidence struct {
	// Sightings is how many verbatim observations to credit
	Sightings int

	// Confirmed marks the word as validated by a higher-confidence
	// correction
	Confirmed bool
}

// Config holds dictionary construction options
type Config struct {
	// ExtraVocabulary supplements the built-in scholarly whitelist
	ExtraVocabulary []string

	// MinSightings is the verbatim-observation count at which an
	// unconfirmed learned entry starts being accepted
	MinSightings int

	// Logger is the logger to use (nil = global logger)
	Logger *logger.Logger
}

// Dictionary is the adaptive vocabulary store. It is safe for
// concurrent readers within a run; mutation goes through Learn,
// Revoke, and Prune only.
type Dictionary struct {
	mu           sync.RWMutex
	base         map[string]struct{}
	whitelist    map[string]struct{}
	whitelistKey []string
	learned      map[string]*LearnedEntry
	minSightings int
	logger       *logger.Logger
}

// New creates a dictionary with the provided configuration
func New(cfg *Config) *Dictionary {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	minSightings := cfg.MinSightings
	if minSightings < 1 {
		minSightings = 3
	}

	whitelist := newWhitelistSet(cfg.ExtraVocabulary)
	keys := make([]string, 0, len(whitelist))
	for term := range whitelist {
		keys = append(keys, term)
	}
	sort.Strings(keys)

	return &Dictionary{
		base:         newBaseSet(),
		whitelist:    whitelist,
		whitelistKey: keys,
		learned:      make(map[string]*LearnedEntry),
		minSightings: minSightings,
		logger:       log,
	}
}

// normalize folds a token to its dictionary key form
func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Contains reports whether the word is accepted by any signal:
// base dictionary, scholarly whitelist, learned layer (with enough
// evidence), or morphological validation.
func (d *Dictionary) Contains(word string) bool {
	key := normalize(word)
	if key == "" {
		return false
	}

	if d.knownWord(key) {
		return true
	}

	return d.MorphologicallyValid(key)
}

// knownWord checks the stored layers only (no morphology)
func (d *Dictionary) knownWord(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.knownWordLocked(key)
}

func (d *Dictionary) knownWordLocked(key string) bool {
	if _, ok := d.base[key]; ok {
		return true
	}
	if _, ok := d.whitelist[key]; ok {
		return true
	}
	if entry, ok := d.learned[key]; ok && d.eligible(entry) {
		return true
	}
	return false
}

// eligible reports whether a learned entry has enough evidence to
// count as vocabulary
func (d *Dictionary) eligible(entry *LearnedEntry) bool {
	return entry.Confirmed || entry.Sightings >= d.minSightings
}

// Lookup returns the stored entry for a word, if any. Morphological
// acceptance is not a stored entry and does not appear here.
func (d *Dictionary) Lookup(word string) (Entry, bool) {
	key := normalize(word)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.base[key]; ok {
		return Entry{Word: key, Source: SourceBase, Confidence: 1.0}, true
	}
	if _, ok := d.whitelist[key]; ok {
		return Entry{Word: key, Source: SourceWhitelist, Confidence: 1.0}, true
	}
	if entry, ok := d.learned[key]; ok && d.eligible(entry) {
		return Entry{Word: key, Source: SourceLearned, Confidence: d.learnedConfidence(entry)}, true
	}
	return Entry{}, false
}

// learnedConfidence scores a learned entry by its evidence
func (d *Dictionary) learnedConfidence(entry *LearnedEntry) float64 {
	if entry.Confirmed {
		return 0.95
	}
	confidence := 0.6 + 0.1*float64(entry.Sightings-d.minSightings)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}

// Learn records evidence for a word. Words already in the base
// dictionary or whitelist are ignored: a learned entry must never
// shadow a static one. Repeated calls accumulate evidence.
func (d *Dictionary) Learn(word string, evidence Evidence) {
	key := normalize(word)
	if key == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.base[key]; ok {
		return
	}
	if _, ok := d.whitelist[key]; ok {
		return
	}

	entry, ok := d.learned[key]
	if !ok {
		entry = &LearnedEntry{Word: key}
		d.learned[key] = entry
	}
	entry.Sightings += evidence.Sightings
	if evidence.Confirmed {
		entry.Confirmed = true
	}

	d.logger.WithFields("word", key, "sightings", entry.Sightings, "confirmed", entry.Confirmed).
		Debug("Recorded dictionary evidence")
}

// Revoke removes a learned entry. Used when a consistent
// high-confidence correction invalidates an earlier bad learn.
// Returns true when an entry was removed.
func (d *Dictionary) Revoke(word string) bool {
	key := normalize(word)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.learned[key]; !ok {
		return false
	}
	delete(d.learned, key)
	d.logger.WithFields("word", key).Debug("Revoked learned entry")
	return true
}

// Prune drops unconfirmed learned entries with fewer sightings than
// the given floor and returns how many were removed
func (d *Dictionary) Prune(minSightings int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, entry := range d.learned {
		if !entry.Confirmed && entry.Sightings < minSightings {
			delete(d.learned, key)
			removed++
		}
	}
	return removed
}

// LearnedCount returns the number of learned entries, eligible or not
func (d *Dictionary) LearnedCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.learned)
}

// LearnedEntries returns a copy of the learned layer sorted by word
func (d *Dictionary) LearnedEntries() []LearnedEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make([]LearnedEntry, 0, len(d.learned))
	for _, entry := range d.learned {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Word < entries[j].Word })
	return entries
}
