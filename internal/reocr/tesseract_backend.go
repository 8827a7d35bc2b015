package reocr

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/platinummonkey/emend/internal/logger"
)

// TesseractBackend re-reads line images with a locally installed
// Tesseract. One client is created at Init and reused; calls are
// serialized because the client is not safe for concurrent use.
type TesseractBackend struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
	logger   *logger.Logger
}

// NewTesseractBackend creates the Tesseract strategy for the given
// language code.
func NewTesseractBackend(language string, log *logger.Logger) *TesseractBackend {
	if log == nil {
		log = logger.Get()
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractBackend{
		language: language,
		logger:   log,
	}
}

// Name returns the strategy name.
func (b *TesseractBackend) Name() string {
	return "tesseract"
}

// Init creates the Tesseract client and configures it for single-line
// recognition. A missing installation surfaces here.
func (b *TesseractBackend) Init(ctx context.Context) error {
	client := gosseract.NewClient()

	if err := client.SetLanguage(b.language); err != nil {
		client.Close()
		return fmt.Errorf("failed to set tesseract language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return fmt.Errorf("failed to set tesseract page segmentation mode: %w", err)
	}

	b.mu.Lock()
	b.client = client
	b.mu.Unlock()

	b.logger.WithFields("language", b.language).Debug("Tesseract re-OCR strategy ready")
	return nil
}

// RecognizeLine runs Tesseract over the line image. The HOCR output
// carries per-word confidences; their mean becomes the line
// confidence.
func (b *TesseractBackend) RecognizeLine(ctx context.Context, image []byte) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil, fmt.Errorf("%w: tesseract client not initialized", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := b.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image data: %w", err)
	}

	hocrText, err := b.client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("failed to get HOCR text: %w", err)
	}

	text, confidence, err := parseHOCRLine(hocrText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HOCR: %w", err)
	}

	return &Result{
		Text:       text,
		Confidence: confidence,
	}, nil
}

// Close releases the Tesseract client.
func (b *TesseractBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	if err != nil {
		return fmt.Errorf("failed to close tesseract client: %w", err)
	}
	return nil
}

// parseHOCRLine extracts the words from HOCR XML and averages their
// x_wconf confidences onto a 0..1 scale.
func parseHOCRLine(hocrText string) (string, float64, error) {
	var page hocrPage
	if err := xml.Unmarshal([]byte(hocrText), &page); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal HOCR XML: %w", err)
	}

	var words []string
	var confidenceSum float64
	var confidenceCount int

	for _, pageDiv := range page.Body.Pages {
		for _, area := range pageDiv.Areas {
			for _, par := range area.Pars {
				for _, line := range par.Lines {
					for _, word := range line.Words {
						text := strings.TrimSpace(word.Text)
						if text == "" {
							continue
						}
						words = append(words, text)
						confidenceSum += extractConfidence(word.Title)
						confidenceCount++
					}
				}
			}
		}
	}

	confidence := 0.0
	if confidenceCount > 0 {
		confidence = confidenceSum / float64(confidenceCount) / 100.0
	}
	return strings.Join(words, " "), confidence, nil
}

var wconfPattern = regexp.MustCompile(`x_wconf\s+(\d+)`)

// extractConfidence extracts the confidence score from an HOCR title
// attribute. Format: "bbox x0 y0 x1 y1; x_wconf 95"
func extractConfidence(title string) float64 {
	matches := wconfPattern.FindStringSubmatch(title)
	if len(matches) != 2 {
		return 0.0
	}

	conf, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0.0
	}
	return conf
}

// hocrPage represents the HOCR XML structure
type hocrPage struct {
	XMLName xml.Name `xml:"html"`
	Body    hocrBody `xml:"body"`
}

type hocrBody struct {
	Pages []hocrPageDiv `xml:"div"`
}

type hocrPageDiv struct {
	Class string     `xml:"class,attr"`
	Title string     `xml:"title,attr"`
	Areas []hocrArea `xml:"div"`
}

type hocrArea struct {
	Class string    `xml:"class,attr"`
	Title string    `xml:"title,attr"`
	Pars  []hocrPar `xml:"p"`
}

type hocrPar struct {
	Class string     `xml:"class,attr"`
	Title string     `xml:"title,attr"`
	Lines []hocrLine `xml:"span"`
}

type hocrLine struct {
	Class string     `xml:"class,attr"`
	Title string     `xml:"title,attr"`
	Words []hocrWord `xml:"span"`
}

type hocrWord struct {
	Class string `xml:"class,attr"`
	Title string `xml:"title,attr"`
	Text  string `xml:",chardata"`
}
