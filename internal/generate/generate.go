// Package generate builds QR payload text and renders it to PNG.
package generate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const (
	// DefaultSize is the rendered edge length of the code in pixels.
	DefaultSize = 256
	// DefaultPadding is the white border added around a saved code.
	DefaultPadding = 20
	// DefaultErrorCorrection is the QR error correction level.
	DefaultErrorCorrection = "H"
	// MaxSize bounds rendered output.
	MaxSize = 4096

	placeholderURL = "https://"
)

var (
	// ErrEmptyContent is returned when there is nothing to encode.
	ErrEmptyContent = errors.New("generate: content is empty")
	// ErrUnknownType is returned for unsupported payload types.
	ErrUnknownType = errors.New("generate: unknown payload type")
)

// Type selects the payload template.
type Type string

const (
	TypeURL   Type = "url"
	TypeWiFi  Type = "wifi"
	TypeVCard Type = "vcard"
)

// WiFi describes a network for a WIFI: payload.
type WiFi struct {
	SSID     string `json:"ssid"`
	Security string `json:"security"`
	Password string `json:"password"`
}

// VCard describes a contact.
type VCard struct {
	Name  string `json:"name"`
	Tel   string `json:"tel"`
	Email string `json:"email"`
}

// Request is a typed generation request.
type Request struct {
	Type  Type   `json:"type"`
	URL   string `json:"url,omitempty"`
	WiFi  WiFi   `json:"wifi,omitzero"`
	VCard VCard  `json:"vcard,omitzero"`
	Size  int    `json:"size,omitempty"`
}

// Options controls rendering.
type Options struct {
	Size            int
	Padding         int
	ErrorCorrection string
	// Margin is the quiet zone in modules. Zero keeps the encoder default.
	Margin int
}

// DefaultOptions returns the standard rendering options.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Padding: DefaultPadding, ErrorCorrection: DefaultErrorCorrection}
}

// URLPayload returns the URL to encode, without surrounding whitespace.
func URLPayload(u string) string {
	return strings.TrimSpace(u)
}

// WiFiPayload formats a network configuration payload.
func WiFiPayload(w WiFi) string {
	return fmt.Sprintf("WIFI:S:%s;T:%s;P:%s;;", w.SSID, w.Security, w.Password)
}

// VCardPayload formats a vCard 3.0 payload.
func VCardPayload(v VCard) string {
	return fmt.Sprintf("BEGIN:VCARD\nVERSION:3.0\nFN:%s\nTEL:%s\nEMAIL:%s\nEND:VCARD", v.Name, v.Tel, v.Email)
}

// Content builds the text to encode for r.
func (r Request) Content() (string, error) {
	var text string
	switch r.Type {
	case TypeURL, "":
		text = URLPayload(r.URL)
	case TypeWiFi:
		text = WiFiPayload(r.WiFi)
	case TypeVCard:
		text = VCardPayload(r.VCard)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
	if err := CheckContent(text); err != nil {
		return "", err
	}
	return text, nil
}

// CheckContent rejects empty text and the bare URL placeholder.
func CheckContent(text string) error {
	if strings.TrimSpace(text) == "" || text == placeholderURL {
		return ErrEmptyContent
	}
	return nil
}

// Encode renders text as a black-on-white QR code of opts.Size pixels.
// The result may be larger than requested if the symbol needs more room.
func Encode(text string, opts Options) (*image.NRGBA, error) {
	if err := CheckContent(text); err != nil {
		return nil, err
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return nil, fmt.Errorf("generate: size %d exceeds maximum %d", size, MaxSize)
	}

	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_CHARACTER_SET: "UTF-8",
	}
	ec := strings.ToUpper(opts.ErrorCorrection)
	if ec == "" {
		ec = DefaultErrorCorrection
	}
	hints[gozxing.EncodeHintType_ERROR_CORRECTION] = ec
	if opts.Margin > 0 {
		hints[gozxing.EncodeHintType_MARGIN] = opts.Margin
	}

	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("generate: encode: %w", err)
	}
	return imaging.Clone(matrix), nil
}

// Pad surrounds img with a white border of padding pixels.
func Pad(img image.Image, padding int) *image.NRGBA {
	if padding <= 0 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*padding, b.Dy()+2*padding, color.White)
	return imaging.Paste(canvas, img, image.Pt(padding, padding))
}

// Render encodes text and applies the configured padding.
func Render(text string, opts Options) (*image.NRGBA, error) {
	img, err := Encode(text, opts)
	if err != nil {
		return nil, err
	}
	return Pad(img, opts.Padding), nil
}

// WritePNG renders text and writes it to w as PNG.
func WritePNG(w io.Writer, text string, opts Options) error {
	img, err := Render(text, opts)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("generate: write png: %w", err)
	}
	return nil
}
