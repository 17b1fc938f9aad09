package extraction

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"testing"

	apperrors "github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader returns the signature and IHDR chunk of a PNG declaring w×h
// pixels, with no image data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 2, 0, 0, 0)

	binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestRasterizer_RejectsOversizedImage(t *testing.T) {
	r := NewRasterizer(72, 0)

	_, _, err := r.Pages("scan.png", pngHeader(60000, 60000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the limit")
}

func TestRasterizer_MaxPixels(t *testing.T) {
	r := NewRasterizer(72, 0).WithMaxPixels(500)

	_, _, err := r.Pages("scan.png", testPNG(t))
	assert.Error(t, err)

	pages, _, err := NewRasterizer(72, 0).WithMaxPixels(800).Pages("scan.png", testPNG(t))
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestRasterizer_MaxPixelsAppliesToPDFPages(t *testing.T) {
	// an A4 page at 72 DPI is about 595×842 pixels
	_, _, err := NewRasterizer(72, 0).WithMaxPixels(100_000).Pages("scan.pdf", testPDF(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")

	pages, _, err := NewRasterizer(72, 0).WithMaxPixels(600_000).Pages("scan.pdf", testPDF(t, 1))
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestParse_OversizedImage(t *testing.T) {
	engine := &fakeEngine{name: "fake", texts: []string{"TOTAL HT: 1,00"}}
	svc := NewService(NewRegistry(engine), NewRasterizer(72, 2), true, logger.Nop())

	_, err := svc.Parse(context.Background(), "scan.png", pngHeader(60000, 60000), "")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "errors.unsupported_file", appErr.MessageKey)
	assert.Zero(t, engine.calls)
}
