package extraction

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

var pdfMagic = []byte("%PDF")

// IsPDF reports whether an upload is a PDF, by extension or content
func IsPDF(filename string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") || bytes.HasPrefix(data, pdfMagic)
}

// DefaultMaxPixels caps the size of a single decoded page
const DefaultMaxPixels = 40_000_000

// Rasterizer turns an upload into page images
type Rasterizer struct {
	dpi       float64
	maxPages  int
	maxPixels int
}

// NewRasterizer creates a rasterizer; maxPages <= 0 means no limit
func NewRasterizer(dpi float64, maxPages int) *Rasterizer {
	if dpi <= 0 {
		dpi = 200
	}
	return &Rasterizer{dpi: dpi, maxPages: maxPages, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels sets the largest page, in pixels, that will be decoded
func (r *Rasterizer) WithMaxPixels(n int) *Rasterizer {
	if n > 0 {
		r.maxPixels = n
	}
	return r
}

func (r *Rasterizer) checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid page size %dx%d", width, height)
	}
	if int64(width)*int64(height) > int64(r.maxPixels) {
		return fmt.Errorf("page of %dx%d pixels exceeds the limit of %d", width, height, r.maxPixels)
	}
	return nil
}

// Pages returns one image per page. Images yield a single page.
// The returned warnings mention pages skipped over the page limit.
func (r *Rasterizer) Pages(filename string, data []byte) ([]image.Image, []string, error) {
	if IsPDF(filename, data) {
		return r.pdfPages(data)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	if err := r.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	return []image.Image{img}, nil, nil
}

func (r *Rasterizer) pdfPages(data []byte) ([]image.Image, []string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, nil, fmt.Errorf("pdf has no pages")
	}

	var warnings []string
	if r.maxPages > 0 && n > r.maxPages {
		warnings = append(warnings, fmt.Sprintf("only the first %d of %d pages were read", r.maxPages, n))
		n = r.maxPages
	}

	pages := make([]image.Image, 0, n)
	scale := r.dpi / 72
	for i := 0; i < n; i++ {
		// bounds are in points at 72 DPI
		bound, err := doc.Bound(i)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d bounds: %w", i+1, err)
		}
		w := int(math.Ceil(float64(bound.Dx()) * scale))
		h := int(math.Ceil(float64(bound.Dy()) * scale))
		if err := r.checkSize(w, h); err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, warnings, nil
}

// Enhance prepares a page for recognition: grayscale, more contrast, sharper edges
func Enhance(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	return imaging.Sharpen(out, 1.5)
}

// EncodePNG encodes a page for the engines
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
