package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/dictionary"
	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/pageimage"
	"github.com/platinummonkey/emend/internal/quality"
)

// maxListedWords caps the word lists in the score report; a damaged
// book can flag thousands
const maxListedWords = 25

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [input]",
	Short: "Score text quality and optionally correct it",
	Long: `Estimate how damaged a text is and classify it as good, marginal,
or bad.

Scoring counts dictionary-unknown words, separates those a known
scanner confusion explains from genuinely suspicious ones, and rates
lines whose character makeup reads as font corruption. With --correct
the known-pattern and spellcheck fixes are applied first and the
corrected text is printed along with the score of the result.

Unlike clean, this path never touches page geometry or re-OCR; it is
the quick judgment call over plain text, a PDF's text layer, or
standard input.

Examples:
  # Score a chapter
  emend score chapter.txt

  # Score a scanned PDF's text layer
  emend score book.pdf

  # Correct with the aggressive preset and print the result
  emend score chapter.txt --correct --preset aggressive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	// Score-specific flags
	scoreCmd.Flags().Bool("correct", false, "apply corrections and print the corrected text")
	scoreCmd.Flags().String("preset", "", "correction preset: conservative, balanced, or aggressive (overrides config)")
	scoreCmd.Flags().StringSlice("vocab", nil, "extra vocabulary words the dictionary accepts")
	scoreCmd.Flags().String("dict", "", "learned dictionary file (overrides config)")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flag := cmd.Flag("preset"); flag != nil && flag.Changed {
		cfg.Correction.Preset = flag.Value.String()
	}
	if flag := cmd.Flag("dict"); flag != nil && flag.Changed {
		cfg.Dictionary.LearnedPath = flag.Value.String()
	}
	if vocab, err := cmd.Flags().GetStringSlice("vocab"); err == nil && len(vocab) > 0 {
		cfg.Dictionary.ExtraVocabulary = append(cfg.Dictionary.ExtraVocabulary, vocab...)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	qcfg, err := correctionConfig(cfg)
	if err != nil {
		return err
	}

	dict := dictionary.New(&dictionary.Config{
		ExtraVocabulary: cfg.Dictionary.ExtraVocabulary,
		MinSightings:    cfg.Dictionary.MinSightings,
		Logger:          log,
	})
	if err := dict.Load(cfg.Dictionary.LearnedPath); err != nil {
		return fmt.Errorf("failed to load learned dictionary: %w", err)
	}

	corrector := quality.New(dict, qcfg, log)

	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	text, err := readInput(input, log)
	if err != nil {
		return err
	}

	if doCorrect, _ := cmd.Flags().GetBool("correct"); doCorrect {
		result := corrector.CorrectOCRErrors(text)
		fmt.Print(result.Text)
		printCorrectionStats(&result)
		return nil
	}

	printScoreReport(corrector.ScoreQuality(text))
	return nil
}

// correctionConfig resolves the preset and any explicit threshold
// overrides from configuration
func correctionConfig(cfg *config.Config) (*quality.Config, error) {
	qcfg, err := quality.ForPreset(cfg.Correction.Preset)
	if err != nil {
		return nil, err
	}
	if cfg.Correction.ApplyThreshold >= 0 {
		qcfg.ApplyThreshold = cfg.Correction.ApplyThreshold
	}
	if cfg.Correction.ReviewThreshold >= 0 {
		qcfg.ReviewThreshold = cfg.Correction.ReviewThreshold
	}
	return qcfg, nil
}

// readInput returns the text to score: a file's contents, a PDF's
// text layer page by page, or stdin when input is empty or "-"
func readInput(input string, log *logger.Logger) (string, error) {
	if input == "" || input == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	if strings.EqualFold(filepath.Ext(input), ".pdf") {
		r := pageimage.NewRenderer(input, 0, log)
		if err := r.Validate(); err != nil {
			return "", fmt.Errorf("cannot read %s: %w", input, err)
		}
		count, err := r.PageCount()
		if err != nil {
			return "", fmt.Errorf("failed to count pages: %w", err)
		}

		var sb strings.Builder
		first := true
		for num := 1; num <= count; num++ {
			text, err := r.PageText(num)
			if err != nil {
				log.WithPage(num).WithError(err).Warn("Failed to extract page text, skipping")
				continue
			}
			if !first {
				sb.WriteString("\f")
			}
			first = false
			sb.WriteString(text)
		}
		return sb.String(), nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// printScoreReport renders the human-readable quality report
func printScoreReport(score quality.QualityScore) {
	fmt.Println("=== Quality Report ===")
	fmt.Printf("Score: %.3f (%s)\n", score.Score, quality.Classify(score.Score))
	fmt.Printf("Estimated error rate: %.1f%%\n", score.EstimatedErrorRate*100)
	fmt.Printf("Words examined: %d\n", score.WordsExamined)

	if len(score.Correctable) > 0 {
		fmt.Printf("Correctable (%d): %s\n", len(score.Correctable), joinCapped(score.Correctable))
	}
	if len(score.Suspicious) > 0 {
		fmt.Printf("Suspicious (%d): %s\n", len(score.Suspicious), joinCapped(score.Suspicious))
	}
	if len(score.NoisyLines) > 0 {
		nums := make([]string, len(score.NoisyLines))
		for i, n := range score.NoisyLines {
			nums[i] = strconv.Itoa(n + 1)
		}
		fmt.Printf("Noisy lines: %s\n", strings.Join(nums, ", "))
	}
}

// printCorrectionStats reports what --correct changed, on stderr so
// stdout stays the corrected text
func printCorrectionStats(result *quality.CorrectionResult) {
	applied := result.AppliedCount()
	review := len(result.Corrections) - applied

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "=== Correction Complete ===")
	fmt.Fprintf(os.Stderr, "Applied: %d\n", applied)
	fmt.Fprintf(os.Stderr, "Review only: %d\n", review)
	fmt.Fprintf(os.Stderr, "Score after: %.3f (%s)\n", result.Quality.Score, quality.Classify(result.Quality.Score))

	for _, c := range result.Corrections {
		if c.Applied {
			fmt.Fprintf(os.Stderr, "  %s -> %s (%.2f, %s)\n", c.Original, c.Corrected, c.Confidence, c.Method)
		}
	}
	for _, c := range result.Corrections {
		if !c.Applied {
			fmt.Fprintf(os.Stderr, "  review: %s -> %s? (%.2f)\n", c.Original, c.Corrected, c.Confidence)
		}
	}
}

// joinCapped joins up to maxListedWords entries, summarizing the rest
func joinCapped(words []string) string {
	if len(words) <= maxListedWords {
		return strings.Join(words, ", ")
	}
	return fmt.Sprintf("%s, and %d more",
		strings.Join(words[:maxListedWords], ", "), len(words)-maxListedWords)
}
