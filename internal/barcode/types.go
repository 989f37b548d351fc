package barcode

import (
	"context"
	"errors"
	"image"
	"strings"
)

// ErrNotFound is returned when no symbol could be located in the image.
var ErrNotFound = errors.New("barcode: no symbol found")

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

var formatNames = map[Format]string{
	FormatQR:         "qr",
	FormatDataMatrix: "datamatrix",
	FormatAztec:      "aztec",
	FormatCode128:    "code128",
	FormatCode39:     "code39",
	FormatEAN8:       "ean8",
	FormatEAN13:      "ean13",
	FormatUPCA:       "upca",
	FormatUPCE:       "upce",
	FormatITF:        "itf",
	FormatCodabar:    "codabar",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// ParseFormat maps a user-facing name (e.g. "qr", "ean-13") to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode", "qr_code":
		return FormatQR, true
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, true
	case "aztec":
		return FormatAztec, true
	case "code128", "code-128":
		return FormatCode128, true
	case "code39", "code-39":
		return FormatCode39, true
	case "ean8", "ean-8":
		return FormatEAN8, true
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	case "upce", "upc-e":
		return FormatUPCE, true
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, true
	case "codabar":
		return FormatCodabar, true
	default:
		return FormatUnknown, false
	}
}

// ParseFormats parses a list of names, skipping unknown entries.
func ParseFormats(names []string) []Format {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		if f, ok := ParseFormat(n); ok {
			out = append(out, f)
		}
	}
	return out
}

// Hints controls backend decoding behavior.
type Hints struct {
	// Formats constrains the set of symbologies to search. Empty means QR only.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// QRHints returns the hints used for still-image decoding: exhaustive
// search restricted to the QR symbology.
func QRHints() Hints {
	return Hints{Formats: []Format{FormatQR}, TryHarder: true}
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Type   Format
	Value  string
	Points []Point         // finder pattern or corner points if available
	BBox   image.Rectangle // derived from Points
}

// Backend is a pluggable barcode decoder implementation.
// Implementations must be safe for repeated and concurrent use.
type Backend interface {
	Decode(ctx context.Context, img image.Image, hints Hints) (Result, error)
}

// NewBackend returns the default gozxing-backed implementation.
func NewBackend() Backend { return &gozxingBackend{} }
