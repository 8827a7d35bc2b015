package pageimage

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	unipdf "github.com/unidoc/unipdf/v3/model"

	"github.com/platinummonkey/emend/internal/page"
)

// blockGapFactor times the median line height is the vertical gap
// that starts a new layout block
const blockGapFactor = 1.8

// glyphMark is one positioned text fragment from the extractor,
// converted to top-left-origin point space
type glyphMark struct {
	offset int
	box    page.Rect
}

// ExtractPage reconstructs one page's block and line layout from the
// PDF's positioned text. Scanned books carry their OCR output as an
// invisible text layer whose glyphs still have real boxes, so the
// geometry survives even when the text is not rendered.
func (r *Renderer) ExtractPage(pageNum int) (*page.Page, error) {
	f, err := os.Open(r.pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pdfReader, err := unipdf.NewPdfReaderLazy(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageNum < 1 || pageNum > numPages {
		return nil, fmt.Errorf("invalid page number %d (PDF has %d pages)", pageNum, numPages)
	}

	pg, err := pdfReader.GetPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", pageNum, err)
	}

	mediaBox, err := pg.GetMediaBox()
	if err != nil {
		return nil, fmt.Errorf("failed to get media box: %w", err)
	}

	ex, err := extractor.New(pg)
	if err != nil {
		return nil, fmt.Errorf("failed to create text extractor: %w", err)
	}

	pageText, _, _, err := ex.ExtractPageText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
	}

	// Convert glyph boxes from the PDF's bottom-left origin to the
	// top-left origin the page model and the renderer share. Meta
	// marks are spaces and breaks the extractor synthesized; they
	// carry no geometry.
	var marks []glyphMark
	for _, m := range pageText.Marks().Elements() {
		if m.Meta || m.BBox.Urx <= m.BBox.Llx || m.BBox.Ury <= m.BBox.Lly {
			continue
		}
		marks = append(marks, glyphMark{
			offset: m.Offset,
			box: page.NewRect(
				m.BBox.Llx-mediaBox.Llx,
				mediaBox.Ury-m.BBox.Ury,
				m.BBox.Urx-m.BBox.Llx,
				m.BBox.Ury-m.BBox.Lly,
			),
		})
	}

	built := buildLayout(pageNum, mediaBox.Urx-mediaBox.Llx, mediaBox.Ury-mediaBox.Lly, pageText.Text(), marks)
	r.logger.WithFields("page", pageNum, "blocks", len(built.Blocks), "lines", built.LineCount()).
		Debug("Extracted page layout")
	return built, nil
}

// buildLayout assembles extracted text and glyph geometry into the
// page model. Each text line's box is the union of its glyph boxes;
// lines separated by more than blockGapFactor times the median line
// height, or whose reading order jumps back up the page, start a new
// block.
func buildLayout(pageNum int, width, height float64, text string, marks []glyphMark) *page.Page {
	pg := page.NewPage(pageNum, width, height)

	sort.Slice(marks, func(i, j int) bool { return marks[i].offset < marks[j].offset })

	type lineGeom struct {
		text string
		box  page.Rect
		has  bool
	}

	// Carve the text into lines and attach each mark to the line whose
	// byte range holds its offset
	var lines []lineGeom
	mi := 0
	offset := 0
	for _, raw := range strings.Split(text, "\n") {
		end := offset + len(raw)
		lg := lineGeom{text: strings.TrimRight(raw, " \t\r")}
		for mi < len(marks) && marks[mi].offset < end {
			if marks[mi].offset >= offset {
				if lg.has {
					lg.box = union(lg.box, marks[mi].box)
				} else {
					lg.box = marks[mi].box
					lg.has = true
				}
			}
			mi++
		}
		if lg.has && lg.text != "" {
			lines = append(lines, lg)
		}
		offset = end + 1
	}

	if len(lines) == 0 {
		return pg
	}

	// Median line height calibrates the block-break gap
	heights := make([]float64, len(lines))
	for i, ln := range lines {
		heights[i] = ln.box.Height
	}
	sort.Float64s(heights)
	median := heights[len(heights)/2]
	if median <= 0 {
		median = 1
	}
	maxGap := blockGapFactor * median

	groups := [][]int{{0}}
	for i := 1; i < len(lines); i++ {
		gap := lines[i].box.Y - lines[i-1].box.Bottom()
		if gap > maxGap || gap < -median {
			groups = append(groups, nil)
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], i)
	}

	number := 0
	for id, idxs := range groups {
		bbox := lines[idxs[0]].box
		for _, i := range idxs[1:] {
			bbox = union(bbox, lines[i].box)
		}
		block := page.NewBlock(id, bbox)
		for _, i := range idxs {
			block.AddLine(page.Line{
				Text:   lines[i].text,
				BBox:   lines[i].box,
				Number: number,
			})
			number++
		}
		pg.AddBlock(*block)
	}
	return pg
}

// union returns the smallest rectangle containing both inputs
func union(a, b page.Rect) page.Rect {
	x0 := math.Min(a.X, b.X)
	y0 := math.Min(a.Y, b.Y)
	x1 := math.Max(a.Right(), b.Right())
	y1 := math.Max(a.Bottom(), b.Bottom())
	return page.NewRect(x0, y0, x1-x0, y1-y0)
}
