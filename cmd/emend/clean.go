package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/page"
	"github.com/platinummonkey/emend/internal/pageimage"
	"github.com/platinummonkey/emend/internal/pipeline"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [input]",
	Short: "Run the cleaning pipeline over extracted book text",
	Long: `Clean OCR errors out of text extracted from a scanned book.

This command:
1. Rejoins words split across line wraps ("beau-" / "tiful")
2. Flags words that look like recognition errors
3. Optionally re-recognizes flagged lines from the page image

Input is a text file, a PDF, or standard input when no argument is
given. PDF input is processed page by page using the positioned text
layer, which also gives re-OCR the line geometry it needs. Plain text
carries no geometry, so stage 3 is skipped and flagged words surface
in the statistics instead.

Examples:
  # Clean a text dump and print the result
  emend clean page.txt

  # Clean straight from a pipe
  pdftotext book.pdf - | emend clean --stats

  # Process a PDF page by page, re-reading suspect lines from the scan
  emend clean book.pdf --reocr --output book-clean.txt

  # Carry domain vocabulary and keep what the run learns
  emend clean book.pdf --vocab dasein,aporia --learn`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	// Clean-specific flags
	cleanCmd.Flags().StringP("output", "o", "", "write cleaned text to this file instead of stdout")
	cleanCmd.Flags().Bool("stats", false, "print run statistics to stderr")
	cleanCmd.Flags().StringSlice("vocab", nil, "extra vocabulary words the dictionary accepts")
	cleanCmd.Flags().String("dict", "", "learned dictionary file (overrides config)")
	cleanCmd.Flags().Bool("learn", false, "persist vocabulary learned during the run")
	cleanCmd.Flags().Bool("reocr", false, "re-recognize flagged lines from the page image (PDF input only)")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyCleanFlags(cmd, cfg); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	isPDF := input != "" && strings.EqualFold(filepath.Ext(input), ".pdf")

	if cfg.ReOCREnabled && !isPDF {
		log.Warn("Re-OCR needs PDF input for page images, disabling stage 3")
		cfg.ReOCREnabled = false
	}

	pipeCfg := &pipeline.Config{
		Config: cfg,
		Logger: log,
	}

	var renderer *pageimage.Renderer
	if isPDF {
		renderer = pageimage.NewRenderer(input, cfg.PageImageDPI, log)
		if err := renderer.Validate(); err != nil {
			return fmt.Errorf("cannot read %s: %w", input, err)
		}
		pipeCfg.Renderer = renderer
	}

	pipe, err := pipeline.New(pipeCfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer func() {
		if err := pipe.Close(); err != nil {
			log.WithError(err).Warn("Failed to close re-OCR engine")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An interrupt cancels the run; the page in flight is discarded and
	// nothing is persisted
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		log.Warn("Interrupt received, cancelling run")
		cancel()
	}()

	var (
		cleaned string
		results []*pipeline.PipelineResult
	)
	if isPDF {
		cleaned, results, err = cleanPDF(ctx, pipe, renderer, log)
	} else {
		cleaned, results, err = cleanStream(pipe, input)
	}
	if err != nil {
		return err
	}

	if !isPDF {
		// ProcessDocument persists on completion itself; the plain-text
		// path has no document loop, so persist here
		if err := pipe.PersistLearned(); err != nil {
			log.WithError(err).Warn("Failed to persist learned dictionary")
		}
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(cleaned), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.WithFields("path", outPath).Info("Wrote cleaned text")
	} else {
		fmt.Print(cleaned)
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		printRunStats(results)
	}
	return nil
}

// applyCleanFlags folds clean-specific flag overrides into the
// configuration
func applyCleanFlags(cmd *cobra.Command, cfg *config.Config) error {
	if flag := cmd.Flag("dict"); flag != nil && flag.Changed {
		cfg.Dictionary.LearnedPath = flag.Value.String()
	}
	if vocab, err := cmd.Flags().GetStringSlice("vocab"); err == nil && len(vocab) > 0 {
		cfg.Dictionary.ExtraVocabulary = append(cfg.Dictionary.ExtraVocabulary, vocab...)
	}
	if learn, _ := cmd.Flags().GetBool("learn"); learn {
		cfg.Dictionary.PersistLearned = true
	}
	if reocr, _ := cmd.Flags().GetBool("reocr"); reocr {
		cfg.ReOCREnabled = true
	}

	// Overrides bypass Load's validation, so check again
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// cleanStream runs the text-only stages over a file or stdin
func cleanStream(pipe *pipeline.Pipeline, input string) (string, []*pipeline.PipelineResult, error) {
	var (
		data []byte
		err  error
	)
	if input == "" || input == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(input)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read input file: %w", err)
		}
	}

	result := pipe.ProcessText(string(data))
	return result.Text, []*pipeline.PipelineResult{result}, nil
}

// cleanPDF extracts each page's positioned text and runs the full
// pipeline over the document. Pages that fail extraction are skipped
// with a warning; only cancellation aborts the run.
func cleanPDF(ctx context.Context, pipe *pipeline.Pipeline, renderer *pageimage.Renderer, log *logger.Logger) (string, []*pipeline.PipelineResult, error) {
	count, err := renderer.PageCount()
	if err != nil {
		return "", nil, fmt.Errorf("failed to count pages: %w", err)
	}
	log.WithFields("pages", count).Info("Processing PDF")

	pages := make([]*page.Page, 0, count)
	for num := 1; num <= count; num++ {
		pg, err := renderer.ExtractPage(num)
		if err != nil {
			log.WithPage(num).WithError(err).Warn("Failed to extract page, skipping")
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pg)
	}

	results, err := pipe.ProcessDocument(ctx, pages)
	if err != nil {
		return "", nil, fmt.Errorf("run cancelled: %w", err)
	}

	// Pages separated by form feed, following pdftotext convention
	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\f")
		}
		sb.WriteString(result.Text)
	}
	return sb.String(), results, nil
}

// printRunStats aggregates per-page results into one report on stderr,
// keeping stdout clean for the corrected text
func printRunStats(results []*pipeline.PipelineResult) {
	var joined, checked, flagged int
	var attempted, replaced, failed, belowBar int
	reocrRan := false
	for _, r := range results {
		joined += r.LineBreak.CandidatesJoined
		checked += r.Detection.WordsChecked
		flagged += r.Detection.WordsFlagged
		if r.ReOCR != nil {
			reocrRan = true
			attempted += r.ReOCR.LinesAttempted
			replaced += r.ReOCR.LinesReplaced
			failed += r.ReOCR.LinesFailed
			belowBar += r.ReOCR.LinesBelowBar
		}
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "=== Clean Complete ===")
	fmt.Fprintf(os.Stderr, "Pages: %d\n", len(results))
	fmt.Fprintf(os.Stderr, "Line breaks rejoined: %d\n", joined)
	fmt.Fprintf(os.Stderr, "Words checked: %d\n", checked)
	fmt.Fprintf(os.Stderr, "Words flagged: %d\n", flagged)
	if reocrRan {
		fmt.Fprintf(os.Stderr, "Re-OCR: %d lines attempted, %d replaced, %d failed, %d below confidence bar\n",
			attempted, replaced, failed, belowBar)
	}
}
