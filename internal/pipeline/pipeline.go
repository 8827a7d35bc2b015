// Package pipeline sequences the cleaning stages over extracted text:
// line-break rejoining, error detection, and optional tiered
// re-recognition of flagged lines from the page image.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/detect"
	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/linebreak"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/page"
	"github.com/platinummonkey/emend/internal/reocr"
)

// ReOCREngine is the strategy-chain surface the pipeline drives.
// *reocr.Engine satisfies it; tests substitute fakes.
type ReOCREngine interface {
	ReOCRLine(ctx context.Context, image []byte) (*reocr.Result, error)
	Stats() reocr.Stats
	Close() error
}

// LineRenderer supplies rendered line crops for re-recognition.
// *pageimage.Renderer satisfies it.
type LineRenderer interface {
	CropLine(pageNum int, bbox page.Rect) ([]byte, error)
}

// Config holds pipeline construction options.
type Config struct {
	// Config is the application configuration (required)
	Config *config.Config

	// Logger is the logger to use (nil = global logger)
	Logger *logger.Logger

	// Dict is the adaptive dictionary; built from Config when nil
	Dict *dictionary.Dictionary

	// Engine is the re-OCR engine; built from Config when nil and
	// re-OCR is enabled
	Engine ReOCREngine

	// Renderer provides page line crops; without one Stage 3 is
	// skipped even when re-OCR is enabled
	Renderer LineRenderer
}

// Pipeline runs the cleaning stages over pages or plain text. One
// pipeline serves a whole document run; the adaptive dictionary
// accumulates evidence across its pages.
type Pipeline struct {
	cfg      *config.Config
	logger   *logger.Logger
	dict     *dictionary.Dictionary
	rejoiner *linebreak.Rejoiner
	detector *detect.Detector
	engine   ReOCREngine
	renderer LineRenderer
}

// New creates a pipeline from the given configuration
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	dict := cfg.Dict
	if dict == nil {
		dict = dictionary.New(&dictionary.Config{
			ExtraVocabulary: cfg.Config.Dictionary.ExtraVocabulary,
			MinSightings:    cfg.Config.Dictionary.MinSightings,
			Logger:          log,
		})
		if path := cfg.Config.Dictionary.LearnedPath; path != "" {
			if err := dict.Load(path); err != nil {
				return nil, fmt.Errorf("failed to load learned dictionary: %w", err)
			}
		}
	}

	engine := cfg.Engine
	if engine == nil && cfg.Config.ReOCREnabled {
		built, err := reocr.NewEngineFromConfig(&cfg.Config.ReOCR, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build re-OCR engine: %w", err)
		}
		engine = built
	}

	return &Pipeline{
		cfg:      cfg.Config,
		logger:   log,
		dict:     dict,
		rejoiner: linebreak.New(dict, &linebreak.Config{Logger: log}),
		detector: detect.New(dict, &detect.Config{
			MinConfidenceToFlag: cfg.Config.Detector.MinConfidenceToFlag,
			MinWordLength:       cfg.Config.Detector.MinWordLength,
			Logger:              log,
		}),
		engine:   engine,
		renderer: cfg.Renderer,
	}, nil
}

// Dictionary returns the pipeline's adaptive dictionary
func (p *Pipeline) Dictionary() *dictionary.Dictionary {
	return p.dict
}

// ProcessText runs the text-only stages over raw page text. Without
// geometry Stage 1 degrades to explicit hyphens and Stage 3 cannot
// run, so flagged words surface as metadata only.
func (p *Pipeline) ProcessText(text string) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{RunID: uuid.New().String()}
	log := p.logger.WithFields("run_id", result.RunID)

	normalized := normalizeText(text)
	if strings.TrimSpace(normalized) == "" {
		log.Debug("Empty input text, returning no-op result")
		result.Text = normalized
		result.Duration = time.Since(start)
		return result
	}

	// Stage 1: rejoin wrapped words
	rejoined, lbStats := p.rejoiner.RejoinText(normalized)
	result.LineBreak = lbStats

	// Stage 2: flag suspect words
	result.Candidates = p.detector.Detect(rejoined)
	result.Detection = DetectionStats{
		WordsChecked: p.detector.ExaminedCount(rejoined),
		WordsFlagged: len(result.Candidates),
	}

	p.recordSightings(result.Candidates)

	result.Text = rejoined
	result.Duration = time.Since(start)

	log.WithFields(
		"joined", result.LineBreak.CandidatesJoined,
		"checked", result.Detection.WordsChecked,
		"flagged", result.Detection.WordsFlagged,
		"duration", result.Duration,
	).Debug("Processed text")
	return result
}

// ProcessPage runs all stages over one extracted page. The source page
// is never mutated; a failed or cancelled run leaves the caller's data
// untouched. The returned error is non-nil only for context
// cancellation; every other failure degrades per line or per page.
func (p *Pipeline) ProcessPage(ctx context.Context, src *page.Page) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{RunID: uuid.New().String()}

	if src == nil || len(src.Blocks) == 0 {
		p.logger.WithFields("run_id", result.RunID).Debug("Page has no text blocks, returning empty result")
		result.Duration = time.Since(start)
		return result, nil
	}

	log := p.logger.WithFields("run_id", result.RunID).WithPage(src.Number)

	proc := clonePage(src)

	// Stage 1: rejoin wrapped words using block geometry
	result.LineBreak = p.rejoiner.Rejoin(proc)

	// Stage 2: flag suspect words, line by line so candidates carry
	// page line numbers and map back to geometry
	var candidates []detect.Candidate
	wordsChecked := 0
	for bi := range proc.Blocks {
		for li := range proc.Blocks[bi].Lines {
			line := &proc.Blocks[bi].Lines[li]
			candidates = append(candidates, p.detector.DetectLine(line.Text, line.Number)...)
			wordsChecked += p.detector.ExaminedCount(line.Text)
		}
	}
	result.Candidates = candidates
	result.Detection = DetectionStats{
		WordsChecked: wordsChecked,
		WordsFlagged: len(candidates),
	}

	p.recordSightings(candidates)

	// Stage 3: re-recognize flagged lines from the page image
	if p.stage3Ready() && len(candidates) > 0 {
		stats, outcomes, err := p.reocrFlaggedLines(ctx, proc, candidates, log)
		if err != nil {
			return nil, err
		}
		result.ReOCR = stats
		result.ReOCRLines = outcomes
	}

	result.Text = proc.Text()
	result.Duration = time.Since(start)

	log.WithFields(
		"joined", result.LineBreak.CandidatesJoined,
		"flagged", result.Detection.WordsFlagged,
		"duration", result.Duration,
	).Debug("Processed page")
	return result, nil
}

// ProcessDocument runs the pipeline over a document's pages in order.
// A bad page yields an empty result and the run continues; only
// context cancellation stops the loop, and the learned dictionary is
// persisted only after a completed run.
func (p *Pipeline) ProcessDocument(ctx context.Context, pages []*page.Page) ([]*PipelineResult, error) {
	results := make([]*PipelineResult, 0, len(pages))
	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := p.ProcessPage(ctx, pg)
		if err != nil {
			// Cancelled mid-page: the partial page is discarded whole
			return results, err
		}
		results = append(results, result)
	}

	if err := p.PersistLearned(); err != nil {
		p.logger.WithError(err).Warn("Failed to persist learned dictionary")
	}
	return results, nil
}

// PersistLearned writes the learned dictionary layer when persistence
// is enabled
func (p *Pipeline) PersistLearned() error {
	if !p.cfg.Dictionary.PersistLearned {
		return nil
	}
	return p.dict.Persist(p.cfg.Dictionary.LearnedPath)
}

// Close releases the re-OCR engine's backends
func (p *Pipeline) Close() error {
	if p.engine == nil {
		return nil
	}
	return p.engine.Close()
}

// stage3Ready reports whether re-OCR can actually run
func (p *Pipeline) stage3Ready() bool {
	return p.cfg.ReOCREnabled && p.engine != nil && p.renderer != nil
}

// reocrFlaggedLines re-reads every line that carries at least one
// flagged word, grouped so a line with five flags is read once. Each
// line degrades independently; only cancellation aborts, and then the
// whole page result is discarded by the caller.
func (p *Pipeline) reocrFlaggedLines(ctx context.Context, proc *page.Page, candidates []detect.Candidate, log *logger.Logger) (*ReOCRStats, []LineReOCR, error) {
	byLine := make(map[int][]detect.Candidate)
	for _, c := range candidates {
		byLine[c.Line] = append(byLine[c.Line], c)
	}
	lineNumbers := make([]int, 0, len(byLine))
	for n := range byLine {
		lineNumbers = append(lineNumbers, n)
	}
	sort.Ints(lineNumbers)

	stats := &ReOCRStats{}
	var outcomes []LineReOCR

	for _, num := range lineNumbers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		_, line := proc.FindLine(num)
		if line == nil {
			continue
		}

		stats.LinesAttempted++

		crop, err := p.renderer.CropLine(proc.Number, line.BBox)
		if err != nil {
			stats.LinesFailed++
			log.WithFields("line", num).WithError(err).Warn("Failed to crop line image, leaving line unchanged")
			continue
		}

		lineStart := time.Now()
		reading, err := p.engine.ReOCRLine(ctx, crop)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			stats.LinesFailed++
			log.WithFields("line", num).WithError(err).Warn("Re-OCR failed, leaving line unchanged")
			continue
		}

		outcome := LineReOCR{
			Line:       num,
			Original:   line.Text,
			Recognized: reading.Text,
			Strategy:   reading.Strategy,
			Confidence: reading.Confidence,
			Duration:   time.Since(lineStart),
			Changed:    strings.TrimSpace(reading.Text) != strings.TrimSpace(line.Text),
		}

		if reading.Confidence >= p.cfg.ReOCR.MinConfidence {
			outcome.Applied = true
			p.reconcileLearned(byLine[num], reading.Text)
			if outcome.Changed {
				line.Text = reading.Text
				stats.LinesReplaced++
			}
		} else {
			stats.LinesBelowBar++
			log.WithFields("line", num, "confidence", reading.Confidence, "strategy", reading.Strategy).
				Debug("Re-OCR result below confidence bar, keeping original")
		}
		outcomes = append(outcomes, outcome)
	}

	stats.ByStrategy = p.engine.Stats().Strategies
	return stats, outcomes, nil
}

// recordSightings credits one verbatim observation per flagged word.
// A legitimate rare term that keeps appearing crosses the evidence
// threshold and stops being flagged; random corruption almost never
// repeats verbatim, so it never accumulates.
func (p *Pipeline) recordSightings(candidates []detect.Candidate) {
	for _, c := range candidates {
		p.dict.Learn(c.Word, dictionary.Evidence{Sightings: 1})
	}
}

// reconcileLearned settles a line's flagged words against a
// high-confidence re-reading. A word the backend reproduced verbatim
// is genuinely printed that way and gets confirmed; a word the backend
// replaced loses whatever learned standing it had accumulated.
func (p *Pipeline) reconcileLearned(lineCandidates []detect.Candidate, recognized string) {
	words := wordSet(recognized)
	for _, c := range lineCandidates {
		if _, ok := words[strings.ToLower(c.Word)]; ok {
			p.dict.Learn(c.Word, dictionary.Evidence{Confirmed: true})
		} else {
			p.dict.Revoke(c.Word)
		}
	}
}

// clonePage deep-copies a page and normalizes its line text, so the
// caller's page survives a discarded run untouched
func clonePage(src *page.Page) *page.Page {
	out := &page.Page{
		Number: src.Number,
		Width:  src.Width,
		Height: src.Height,
		Blocks: make([]page.Block, len(src.Blocks)),
	}
	for i, blk := range src.Blocks {
		copied := blk
		copied.Lines = make([]page.Line, len(blk.Lines))
		for j, line := range blk.Lines {
			line.Text = normalizeText(line.Text)
			copied.Lines[j] = line
		}
		out.Blocks[i] = copied
	}
	return out
}

// normalizeText folds text to NFC and strips zero-width characters so
// dictionary keys and learned forms stay stable across extraction
// quirks
func normalizeText(text string) string {
	return strings.Map(dropZeroWidth, norm.NFC.String(text))
}

func dropZeroWidth(r rune) rune {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return -1
	}
	return r
}

// wordSet collects the lower-cased word-like tokens of a string
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			set[strings.ToLower(s[start:i])] = struct{}{}
			start = -1
		}
	}
	if start >= 0 {
		set[strings.ToLower(s[start:])] = struct{}{}
	}
	return set
}
