package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// Decode tries each requested symbology in turn and returns the first hit.
// gozxing readers keep internal state, so a fresh reader is built per call.
func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, hints Hints) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, errors.New("barcode: empty image")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return Result{}, fmt.Errorf("barcode: binarize: %w", err)
	}

	formats := hints.Formats
	if len(formats) == 0 {
		formats = []Format{FormatQR}
	}
	zxHints := buildHints(formats, hints.TryHarder)

	var lastErr error
	for _, f := range formats {
		reader := newReader(f)
		if reader == nil {
			continue
		}
		r, err := reader.Decode(bitmap, zxHints)
		if err != nil {
			lastErr = err
			continue
		}
		if r == nil || r.GetText() == "" {
			continue
		}
		return toResult(r), nil
	}
	if lastErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotFound, lastErr)
	}
	return Result{}, ErrNotFound
}

func buildHints(formats []Format, tryHarder bool) map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})
	zx := make([]gozxing.BarcodeFormat, 0, len(formats))
	for _, f := range formats {
		if bf, ok := mapFormatToZXing(f); ok {
			zx = append(zx, bf)
		}
	}
	if len(zx) > 0 {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = zx
	}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return hints
}

func newReader(f Format) gozxing.Reader {
	switch f {
	case FormatQR:
		return qrcode.NewQRCodeReader()
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader()
	case FormatAztec:
		return aztec.NewAztecReader()
	case FormatCode128:
		return oned.NewCode128Reader()
	case FormatCode39:
		return oned.NewCode39Reader()
	case FormatEAN8:
		return oned.NewEAN8Reader()
	case FormatEAN13:
		return oned.NewEAN13Reader()
	case FormatUPCA:
		return oned.NewUPCAReader()
	case FormatUPCE:
		return oned.NewUPCEReader()
	case FormatITF:
		return oned.NewITFReader()
	case FormatCodabar:
		return oned.NewCodaBarReader()
	default:
		return nil
	}
}

func toResult(r *gozxing.Result) Result {
	pts := r.GetResultPoints()
	points := make([]Point, 0, len(pts))
	for _, p := range pts {
		points = append(points, Point{X: int(p.GetX()), Y: int(p.GetY())})
	}
	return Result{
		Type:   mapFormatFromZXing(r.GetBarcodeFormat()),
		Value:  r.GetText(),
		Points: points,
		BBox:   rectFromPoints(points),
	}
}

func mapFormatToZXing(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	for f := FormatQR; f <= FormatCodabar; f++ {
		if zx, ok := mapFormatToZXing(f); ok && zx == bf {
			return f
		}
	}
	return FormatUnknown
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
