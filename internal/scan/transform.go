package scan

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// NewRaster converts any image into a fresh 8-bit RGBA raster anchored at (0,0).
func NewRaster(img image.Image) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return imaging.Clone(img), nil
}

// Transform builds the derived raster for one strategy. The source is never
// modified; the returned raster is always a new allocation.
func Transform(src *image.NRGBA, s Strategy) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	// Steps chain on the previous raster. Only Normal needs a copy of src.
	var base image.Image = src
	var out *image.NRGBA
	switch s.Filter {
	case FilterGrayContrast:
		out = GrayContrast(src)
	case FilterInvert:
		out = Invert(src)
	case FilterNone:
	default:
		return nil, fmt.Errorf("scan: unknown filter %d", s.Filter)
	}
	if out != nil {
		base = out
	}

	if f := s.scale(); f != 1.0 {
		scaled, err := Scale(base, f)
		if err != nil {
			return nil, err
		}
		out, base = scaled, scaled
	}

	if s.Binarize {
		out = Binarize(base)
	}

	if out == nil {
		out = imaging.Clone(src)
	}
	return out, nil
}

// contrastLUT maps gray levels through v' = (v - 127.5) * ContrastFactor + 127.5.
var contrastLUT = func() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		v := (float64(i)-127.5)*ContrastFactor + 127.5
		lut[i] = clamp8(math.Round(v))
	}
	return lut
}()

// GrayContrast converts to grayscale and expands contrast around the midpoint.
func GrayContrast(src image.Image) *image.NRGBA {
	gray := imaging.Grayscale(src)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: contrastLUT[c.R], G: contrastLUT[c.G], B: contrastLUT[c.B], A: c.A}
	})
}

// Invert replaces every color channel v with 255-v. Alpha is kept.
func Invert(src image.Image) *image.NRGBA {
	return imaging.Invert(src)
}

// Scale resamples the raster by factor in both directions. Target sizes are
// floored so a 2.0 factor yields exactly twice the width and height.
func Scale(src image.Image, factor float64) (*image.NRGBA, error) {
	b := src.Bounds()
	w := int(math.Floor(float64(b.Dx()) * factor))
	h := int(math.Floor(float64(b.Dy()) * factor))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: scaled size %dx%d", ErrEmptyImage, w, h)
	}
	return imaging.Resize(src, w, h, imaging.Linear), nil
}

// Binarize thresholds the unweighted RGB mean: strictly above
// BinarizeThreshold becomes white, everything else black. Alpha is kept.
func Binarize(src image.Image) *image.NRGBA {
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		// mean > 128 <=> sum > 3*128, avoids the division
		sum := int(c.R) + int(c.G) + int(c.B)
		var v uint8
		if sum > 3*BinarizeThreshold {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
