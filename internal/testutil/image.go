package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"
)

// DefaultQRSize is the edge length used by QR fixtures.
const DefaultQRSize = 256

// GenerateQR renders text as a black-on-white QR code of the given size,
// including gozxing's default quiet zone.
func GenerateQR(text string, size int) (*image.NRGBA, error) {
	bm, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, fmt.Errorf("encode QR fixture: %w", err)
	}
	return imaging.Clone(bm), nil
}

// MustQR is GenerateQR for tests.
func MustQR(t *testing.T, text string, size int) *image.NRGBA {
	t.Helper()

	img, err := GenerateQR(text, size)
	require.NoError(t, err)
	return img
}

// InvertedQR renders a white-on-black QR code.
func InvertedQR(t *testing.T, text string, size int) *image.NRGBA {
	t.Helper()

	return imaging.Invert(MustQR(t, text, size))
}

// CreateTestImage creates a solid image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// GradientImage creates an image whose channels vary with position, useful
// for checking transforms pixel by pixel.
func GradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 13) % 256),
				B: uint8((x + y) % 256),
				A: uint8(128 + (x*y)%128),
			})
		}
	}
	return img
}

// SaveImage saves an image as PNG to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteQRFile renders text as a QR code into dir/name and returns the path.
func WriteQRFile(t *testing.T, dir, name, text string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	SaveImage(t, MustQR(t, text, DefaultQRSize), path)
	return path
}

// PNGBytes encodes img as PNG.
func PNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// WriteQRPDF builds a PDF with one QR code image per page and returns its path.
func WriteQRPDF(t *testing.T, texts ...string) string {
	t.Helper()

	dir := t.TempDir()
	imgs := make([]string, 0, len(texts))
	for i, text := range texts {
		imgs = append(imgs, WriteQRFile(t, dir, fmt.Sprintf("qr%02d.png", i), text))
	}
	out := filepath.Join(dir, "codes.pdf")
	require.NoError(t, api.ImportImagesFile(imgs, out, nil, nil))
	return out
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}

// SameNRGBA reports whether two rasters have identical bounds and pixels.
func SameNRGBA(a, b *image.NRGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	w := a.Bounds().Dx() * 4
	for y := range a.Bounds().Dy() {
		ra := a.Pix[y*a.Stride : y*a.Stride+w]
		rb := b.Pix[y*b.Stride : y*b.Stride+w]
		for i := range ra {
			if ra[i] != rb[i] {
				return false
			}
		}
	}
	return true
}
