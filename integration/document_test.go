package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/page"
	"github.com/platinummonkey/emend/internal/pipeline"
)

type docLine struct {
	text  string
	flush bool // line reaches the right margin of its block
}

// docPage lays the lines out as one justified text block on a letter
// page, the shape a scanned book page extracts to
func docPage(num int, lines []docLine) *page.Page {
	pg := page.NewPage(num, 612, 792)
	block := page.NewBlock(0, page.NewRect(72, 72, 468, float64(len(lines))*14+4))
	for i, ln := range lines {
		width := 300.0
		if ln.flush {
			width = 466.0
		}
		block.AddLine(page.Line{
			Text:   ln.text,
			BBox:   page.NewRect(72, 72+float64(i)*14, width, 12),
			Number: i,
		})
	}
	pg.AddBlock(*block)
	return pg
}

func documentConfig(t *testing.T, tmpDir string) (*config.Config, string) {
	t.Helper()
	learnedPath := filepath.Join(tmpDir, "learned.yaml")
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log-level: error
dict-learned-path: ` + learnedPath + `
dict-persist: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg, learnedPath
}

// TestDocumentGeometryWorkflow runs a two-page document with positioned
// lines through the full document path: margin-flush and hyphen rejoins,
// detection, and persistence of what the run saw
func TestDocumentGeometryWorkflow(t *testing.T) {
	cfg, learnedPath := documentConfig(t, t.TempDir())

	log, err := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	pipe, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	// Page 1 wraps a word without a hyphen; only the flush right edge
	// says so. Page 2 wraps with a hyphen and carries an OCR error.
	page1 := docPage(1, []docLine{
		{text: "It was a beauti", flush: true},
		{text: "ful morning in every way.", flush: false},
	})
	page2 := docPage(2, []docLine{
		{text: "The rnorning was dark, but the evening", flush: true},
		{text: "brought us a beau-", flush: false},
		{text: "tiful ending.", flush: false},
	})

	results, err := pipe.ProcessDocument(context.Background(), []*page.Page{page1, page2})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results[0].LineBreak.CandidatesJoined != 1 {
		t.Errorf("page 1 CandidatesJoined = %d, want 1", results[0].LineBreak.CandidatesJoined)
	}
	if !strings.Contains(results[0].Text, "beautiful\n") {
		t.Errorf("page 1 Text = %q, want the flush wrap rejoined", results[0].Text)
	}
	if results[0].Detection.WordsFlagged != 0 {
		t.Errorf("page 1 WordsFlagged = %d, want 0", results[0].Detection.WordsFlagged)
	}

	if results[1].LineBreak.CandidatesJoined != 1 {
		t.Errorf("page 2 CandidatesJoined = %d, want 1", results[1].LineBreak.CandidatesJoined)
	}
	if !strings.Contains(results[1].Text, "a beautiful\n") {
		t.Errorf("page 2 Text = %q, want the hyphen wrap rejoined", results[1].Text)
	}
	if results[1].Detection.WordsFlagged != 1 {
		t.Fatalf("page 2 WordsFlagged = %d, want 1", results[1].Detection.WordsFlagged)
	}
	if results[1].Candidates[0].Word != "rnorning" {
		t.Errorf("page 2 flagged %q, want rnorning", results[1].Candidates[0].Word)
	}

	// The caller's pages stay untouched
	if page1.Blocks[0].Lines[0].Text != "It was a beauti" {
		t.Errorf("source page mutated: %q", page1.Blocks[0].Lines[0].Text)
	}

	// A completed run persists its sightings
	dict := dictionary.New(&dictionary.Config{Logger: log})
	if err := dict.Load(learnedPath); err != nil {
		t.Fatalf("Failed to load persisted dictionary: %v", err)
	}
	entries := dict.LearnedEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d learned entries, want 1", len(entries))
	}
	if entries[0].Word != "rnorning" || entries[0].Sightings != 1 {
		t.Errorf("learned entry = %+v, want rnorning with one sighting", entries[0])
	}
}

// TestDocumentCancellationSkipsPersistence tests that a cancelled run
// discards its results and leaves no learned file behind
func TestDocumentCancellationSkipsPersistence(t *testing.T) {
	cfg, learnedPath := documentConfig(t, t.TempDir())

	log, err := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	pipe, err := pipeline.New(&pipeline.Config{Config: cfg, Logger: log})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pg := docPage(1, []docLine{
		{text: "The rnorning was dark.", flush: false},
	})
	results, err := pipe.ProcessDocument(ctx, []*page.Page{pg})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want none from a cancelled run", len(results))
	}
	if _, err := os.Stat(learnedPath); !os.IsNotExist(err) {
		t.Error("cancelled run should not persist the learned dictionary")
	}
}
