// Package reocr re-reads individual line images with a chain of OCR
// strategies. The chain runs in a fixed preference order and escalates
// only when a strategy is unavailable or returns an error. A result
// with low confidence does not escalate: the strategies disagree in
// kind, not in degree, and re-reading a legible line with a weaker
// engine produces worse text, not better.
package reocr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/emend/internal/logger"
)

// ErrUnavailable marks a strategy that cannot run at all: its server
// is down, its binary is missing, its credentials are absent. The
// engine also returns it when every strategy in the chain has failed.
var ErrUnavailable = errors.New("re-ocr unavailable")

// Result is the outcome of re-reading one line image.
type Result struct {
	Text       string
	Confidence float64
	Strategy   string
}

// Attempt records one strategy's failure on the way to a result.
type Attempt struct {
	Strategy string
	Err      string
}

// StrategyStats counts one strategy's activity.
type StrategyStats struct {
	Attempts  int
	Successes int
	Failures  int
}

// Stats is a snapshot of per-strategy counters.
type Stats struct {
	Strategies map[string]StrategyStats
}

// Backend is one re-OCR strategy. Init runs lazily, once, before the
// first recognition; an Init error makes the backend permanently
// unavailable. RecognizeLine errors wrapping ErrUnavailable do the
// same, any other error counts as transient.
type Backend interface {
	Name() string
	Init(ctx context.Context) error
	RecognizeLine(ctx context.Context, image []byte) (*Result, error)
	Close() error
}

// managedBackend wraps a backend with its lifecycle state.
type managedBackend struct {
	backend     Backend
	once        sync.Once
	initErr     error
	initialized bool
	dead        bool
}

// Config carries engine-level settings.
type Config struct {
	Logger *logger.Logger
}

// Engine runs the strategy chain over line images.
type Engine struct {
	mu       sync.Mutex
	backends []*managedBackend
	stats    map[string]StrategyStats
	logger   *logger.Logger
}

// NewEngine creates an engine over the given backends in chain order.
func NewEngine(backends []Backend, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	managed := make([]*managedBackend, 0, len(backends))
	stats := make(map[string]StrategyStats, len(backends))
	for _, b := range backends {
		managed = append(managed, &managedBackend{backend: b})
		stats[b.Name()] = StrategyStats{}
	}

	return &Engine{
		backends: managed,
		stats:    stats,
		logger:   log,
	}
}

// Strategies returns the backend names in chain order.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.backends))
	for _, mb := range e.backends {
		names = append(names, mb.backend.Name())
	}
	return names
}

// ReOCRLine re-reads one line image, walking the chain until a
// strategy produces a result. The result's confidence is whatever the
// producing strategy reported; deciding whether that is good enough is
// the caller's business. When every strategy fails the error wraps
// ErrUnavailable.
func (e *Engine) ReOCRLine(ctx context.Context, image []byte) (*Result, error) {
	if len(image) == 0 {
		return nil, errors.New("empty line image")
	}

	var attempts []Attempt
	for _, mb := range e.backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := mb.backend.Name()
		if e.isDead(mb) {
			continue
		}

		e.bumpAttempts(name)
		if err := e.ensureInit(ctx, mb); err != nil {
			e.bumpFailures(name)
			attempts = append(attempts, Attempt{Strategy: name, Err: err.Error()})
			e.logger.WithFields("strategy", name, "error", err.Error()).Debug("Re-OCR strategy unavailable")
			continue
		}

		result, err := mb.backend.RecognizeLine(ctx, image)
		if err != nil {
			e.bumpFailures(name)
			attempts = append(attempts, Attempt{Strategy: name, Err: err.Error()})
			if errors.Is(err, ErrUnavailable) {
				e.markDead(mb)
				e.logger.WithFields("strategy", name, "error", err.Error()).Warn("Re-OCR strategy went unavailable")
			} else {
				e.logger.WithFields("strategy", name, "error", err.Error()).Debug("Re-OCR strategy failed, escalating")
			}
			continue
		}

		e.bumpSuccesses(name)
		result.Strategy = name
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnavailable, describeAttempts(attempts))
}

// ReOCRBatch re-reads a slice of line images, preserving order. A
// failed line leaves a nil entry and processing continues; only
// context cancellation aborts the batch.
func (e *Engine) ReOCRBatch(ctx context.Context, images [][]byte) ([]*Result, error) {
	results := make([]*Result, len(images))
	for i, image := range images {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := e.ReOCRLine(ctx, image)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			continue
		}
		results[i] = result
	}
	return results, nil
}

// Stats returns a copy of the per-strategy counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]StrategyStats, len(e.stats))
	for name, s := range e.stats {
		out[name] = s
	}
	return Stats{Strategies: out}
}

// Close shuts down every backend that was initialized. The first
// close error is returned; the rest are logged.
func (e *Engine) Close() error {
	var firstErr error
	for _, mb := range e.backends {
		if !e.wasInitialized(mb) {
			continue
		}
		if err := mb.backend.Close(); err != nil {
			e.logger.WithFields("strategy", mb.backend.Name(), "error", err.Error()).Warn("Failed to close re-OCR strategy")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to close %s: %w", mb.backend.Name(), err)
			}
		}
	}
	return firstErr
}

// ensureInit runs the backend's one-time initialization. A failed init
// is terminal for the backend.
func (e *Engine) ensureInit(ctx context.Context, mb *managedBackend) error {
	mb.once.Do(func() {
		if err := mb.backend.Init(ctx); err != nil {
			mb.initErr = fmt.Errorf("%w: init %s: %v", ErrUnavailable, mb.backend.Name(), err)
			e.markDead(mb)
			return
		}
		e.mu.Lock()
		mb.initialized = true
		e.mu.Unlock()
	})
	return mb.initErr
}

func (e *Engine) isDead(mb *managedBackend) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mb.dead
}

func (e *Engine) markDead(mb *managedBackend) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mb.dead = true
}

// wasInitialized reports whether the backend finished Init and may
// hold resources worth closing.
func (e *Engine) wasInitialized(mb *managedBackend) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mb.initialized
}

func (e *Engine) bumpAttempts(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats[name]
	s.Attempts++
	e.stats[name] = s
}

func (e *Engine) bumpSuccesses(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats[name]
	s.Successes++
	e.stats[name] = s
}

func (e *Engine) bumpFailures(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats[name]
	s.Failures++
	e.stats[name] = s
}

func describeAttempts(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no strategy was available"
	}
	out := ""
	for i, a := range attempts {
		if i > 0 {
			out += "; "
		}
		out += a.Strategy + ": " + a.Err
	}
	return out
}
