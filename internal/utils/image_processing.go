package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur while loading or
// preparing an image.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the dimensions of images accepted for scanning.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the limits applied to scan inputs.
// Anything smaller than a version 1 symbol cannot contain a QR code.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  4096,
		MaxHeight: 4096,
		MinWidth:  21,
		MinHeight: 21,
	}
}

// ValidateImageConstraints checks the minimum dimensions. Oversized images
// are accepted; FitWithin scales them down.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf(
				"image too small: %dx%d < %dx%d",
				w, h, constraints.MinWidth, constraints.MinHeight,
			),
		}
	}
	return nil
}

// FitWithin scales img down, preserving aspect ratio, so that it fits the
// maximum dimensions. Images already within bounds are returned unchanged.
func FitWithin(img image.Image, constraints ImageConstraints) image.Image {
	b := img.Bounds()
	if b.Dx() <= constraints.MaxWidth && b.Dy() <= constraints.MaxHeight {
		return img
	}
	return imaging.Fit(img, constraints.MaxWidth, constraints.MaxHeight, imaging.Lanczos)
}

// PrepareImage validates img and scales it into bounds.
func PrepareImage(img image.Image, constraints ImageConstraints) (image.Image, error) {
	if err := ValidateImageConstraints(img, constraints); err != nil {
		return nil, err
	}
	return FitWithin(img, constraints), nil
}
