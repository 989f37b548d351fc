package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted is returned when every strategy failed to produce a decode.
	ErrExhausted = errors.New("scan: no QR code found after all strategies")

	// ErrEmptyImage is returned when a raster has zero width or height.
	ErrEmptyImage = errors.New("scan: image has zero width or height")

	// ErrEmptyResult marks a decoder call that returned no text.
	ErrEmptyResult = errors.New("scan: decoder returned empty text")
)

// StrategyError records why a single strategy failed. It is recovered inside
// the pipeline and only surfaces through logs.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s failed: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
