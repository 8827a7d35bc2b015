package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/platinummonkey/emend/internal/detect"
	"github.com/platinummonkey/emend/internal/linebreak"
	"github.com/platinummonkey/emend/internal/reocr"
)

// DetectionStats counts Stage 2 activity for one run.
type DetectionStats struct {
	// WordsChecked is the number of tokens the detector evaluated
	WordsChecked int

	// WordsFlagged is the number of candidates it reported
	WordsFlagged int
}

// ReOCRStats aggregates Stage 3 activity for one run. Zero successful
// re-recognitions with nonzero attempts means every backend was down
// and the original text survived untouched.
type ReOCRStats struct {
	// LinesAttempted counts flagged lines handed to the engine
	LinesAttempted int

	// LinesReplaced counts lines whose text was substituted
	LinesReplaced int

	// LinesFailed counts lines left unchanged after engine failure
	LinesFailed int

	// LinesBelowBar counts results discarded for low confidence
	LinesBelowBar int

	// ByStrategy holds the engine's per-strategy counters
	ByStrategy map[string]reocr.StrategyStats
}

// LineReOCR records one line's re-recognition outcome.
type LineReOCR struct {
	// Line is the page line number the crop came from
	Line int

	// Original is the line text before re-recognition
	Original string

	// Recognized is the backend's reading of the line image
	Recognized string

	// Strategy names the backend that produced the reading
	Strategy string

	// Confidence is what the backend reported for its reading
	Confidence float64

	// Duration is how long the engine took for this line
	Duration time.Duration

	// Applied reports whether the reading replaced the original text
	Applied bool

	// Changed reports whether the reading differs from the original
	Changed bool
}

// PipelineResult is the aggregate output of one ProcessText or
// ProcessPage call. The corrected text always reflects exactly the
// recorded statistics; nothing is ever half-applied.
type PipelineResult struct {
	// RunID correlates this result with its log lines
	RunID string

	// Text is the corrected output text
	Text string

	// LineBreak holds Stage 1 rejoin statistics
	LineBreak linebreak.Stats

	// Detection holds Stage 2 statistics
	Detection DetectionStats

	// Candidates lists the flagged words in reading order
	Candidates []detect.Candidate

	// ReOCR holds Stage 3 statistics, nil when the stage did not run
	ReOCR *ReOCRStats

	// ReOCRLines records per-line re-recognition outcomes
	ReOCRLines []LineReOCR

	// Duration is the wall time of the run
	Duration time.Duration
}

// Summary returns a human-readable summary of the run
func (r *PipelineResult) Summary() string {
	var sb strings.Builder

	sb.WriteString("Pipeline Summary:\n")
	sb.WriteString(fmt.Sprintf("  Run: %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("  Line breaks: %d examined, %d joined, %d rejected\n",
		r.LineBreak.CandidatesExamined, r.LineBreak.CandidatesJoined, r.LineBreak.CandidatesRejected))
	sb.WriteString(fmt.Sprintf("  Detection: %d words checked, %d flagged\n",
		r.Detection.WordsChecked, r.Detection.WordsFlagged))

	if r.ReOCR != nil {
		sb.WriteString(fmt.Sprintf("  Re-OCR: %d lines attempted, %d replaced, %d failed, %d below confidence bar\n",
			r.ReOCR.LinesAttempted, r.ReOCR.LinesReplaced, r.ReOCR.LinesFailed, r.ReOCR.LinesBelowBar))

		names := make([]string, 0, len(r.ReOCR.ByStrategy))
		for name := range r.ReOCR.ByStrategy {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := r.ReOCR.ByStrategy[name]
			sb.WriteString(fmt.Sprintf("    %s: %d attempts, %d successes, %d failures\n",
				name, s.Attempts, s.Successes, s.Failures))
		}
	}

	sb.WriteString(fmt.Sprintf("  Duration: %v\n", r.Duration))
	return sb.String()
}

// String returns a string representation of the result
func (r *PipelineResult) String() string {
	return r.Summary()
}
