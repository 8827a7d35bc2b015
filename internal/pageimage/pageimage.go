// Package pageimage renders source PDF pages and cuts per-line crops
// out of them for re-recognition.
package pageimage

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/unidoc/unipdf/v3/common"
	unipdf "github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"

	"github.com/platinummonkey/emend/internal/logger"
	"github.com/platinummonkey/emend/internal/page"
)

// init sets up unidoc licensing (metered mode for free usage)
func init() {
	// For production, set a license key via: common.SetLicenseKey()
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

const (
	// DefaultDPI matches archival scan resolution
	DefaultDPI = 300

	// linePadding widens a line crop by this many points on every
	// side so ascenders and descenders survive the cut
	linePadding = 2.0
)

// Renderer renders PDF pages to raster images and crops line regions.
// The most recently rendered page stays cached: flagged lines cluster
// by page, and a 300 DPI page render is far too expensive to repeat
// per line.
type Renderer struct {
	mu        sync.Mutex
	pdfPath   string
	dpi       int
	logger    *logger.Logger
	cachedNum int
	cached    image.Image
}

// NewRenderer creates a renderer for the given source PDF
func NewRenderer(pdfPath string, dpi int, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Get()
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{
		pdfPath: pdfPath,
		dpi:     dpi,
		logger:  log,
	}
}

// Validate checks that the source PDF exists and is readable
func (r *Renderer) Validate() error {
	if _, err := os.Stat(r.pdfPath); os.IsNotExist(err) {
		return fmt.Errorf("PDF file does not exist: %s", r.pdfPath)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(r.pdfPath, conf); err != nil {
		return fmt.Errorf("PDF validation failed: %w", err)
	}
	return nil
}

// PageCount returns the number of pages in the source PDF
func (r *Renderer) PageCount() (int, error) {
	ctx, err := api.ReadContextFile(r.pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return ctx.PageCount, nil
}

// RenderPage renders one page to an image at the configured DPI
func (r *Renderer) RenderPage(pageNum int) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderPageLocked(pageNum)
}

func (r *Renderer) renderPageLocked(pageNum int) (image.Image, error) {
	if r.cached != nil && r.cachedNum == pageNum {
		return r.cached, nil
	}

	r.logger.WithFields("pdf", r.pdfPath, "page", pageNum, "dpi", r.dpi).Debug("Rendering PDF page to image")

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

	device := render.NewImageDevice()

	mediaBox, err := pg.GetMediaBox()
	if err != nil {
		return nil, fmt.Errorf("failed to get media box: %w", err)
	}
	pageWidth := mediaBox.Urx - mediaBox.Llx

	// PDF points are 1/72 inch; height follows from the aspect ratio
	device.OutputWidth = pointsToPixels(pageWidth, r.dpi)

	img, err := device.Render(pg)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	bounds := img.Bounds()
	r.logger.WithFields("width", bounds.Dx(), "height", bounds.Dy()).Debug("Rendered page to image")

	r.cachedNum = pageNum
	r.cached = img
	return img, nil
}

// CropLine renders the line's page and returns the line region as PNG
// bytes. The bbox is in point space with a top-left origin, matching
// the extraction geometry.
func (r *Renderer) CropLine(pageNum int, bbox page.Rect) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, err := r.renderPageLocked(pageNum)
	if err != nil {
		return nil, err
	}

	crop := cropRect(bbox, r.dpi, img.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("line region (%.1f,%.1f %.1fx%.1f) falls outside the rendered page",
			bbox.X, bbox.Y, bbox.Width, bbox.Height)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropImage(img, crop)); err != nil {
		return nil, fmt.Errorf("failed to encode line image: %w", err)
	}
	return buf.Bytes(), nil
}

// pointsToPixels converts a point distance to pixels at the given DPI
func pointsToPixels(points float64, dpi int) int {
	return int(points * float64(dpi) / 72.0)
}

// cropRect converts a point-space line box to a padded pixel
// rectangle clamped to the rendered image bounds
func cropRect(bbox page.Rect, dpi int, bounds image.Rectangle) image.Rectangle {
	x0 := pointsToPixels(bbox.X-linePadding, dpi)
	y0 := pointsToPixels(bbox.Y-linePadding, dpi)
	x1 := pointsToPixels(bbox.Right()+linePadding, dpi)
	y1 := pointsToPixels(bbox.Bottom()+linePadding, dpi)
	return image.Rect(x0, y0, x1, y1).Intersect(bounds)
}

// cropImage cuts the rectangle out of the image without assuming the
// renderer's concrete raster type
func cropImage(img image.Image, rect image.Rectangle) image.Image {
	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}
