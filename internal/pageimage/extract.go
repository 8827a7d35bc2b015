package pageimage

import (
	"fmt"
	"os"

	"github.com/unidoc/unipdf/v3/extractor"
	unipdf "github.com/unidoc/unipdf/v3/model"
)

// PageText extracts the embedded text layer of one page. Scanned books
// processed through OCR carry their recognition output as an invisible
// text layer over the page image; this is the text the cleaning stages
// operate on when no structured extraction is available.
func (r *Renderer) PageText(pageNum int) (string, error) {
	f, err := os.Open(r.pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pdfReader, err := unipdf.NewPdfReaderLazy(f)
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if pageNum < 1 || pageNum > numPages {
		return "", fmt.Errorf("invalid page number %d (PDF has %d pages)", pageNum, numPages)
	}

	pg, err := pdfReader.GetPage(pageNum)
	if err != nil {
		return "", fmt.Errorf("failed to get page %d: %w", pageNum, err)
	}

	ex, err := extractor.New(pg)
	if err != nil {
		return "", fmt.Errorf("failed to create text extractor: %w", err)
	}

	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
	}

	r.logger.WithFields("page", pageNum, "chars", len(text)).Debug("Extracted page text layer")
	return text, nil
}
