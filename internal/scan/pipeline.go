// Package scan implements the still-image QR decoding pipeline.
//
// A decode runs an ordered list of preprocessing strategies against the
// source raster and stops at the first one the decoder accepts:
//
//	Normal -> Contrast -> Invert -> Scale2x -> Binarize
//
// Every strategy derives its raster from the original source, so they are
// independent of each other and of the order they happen to run in.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
)

// DecodeFunc is the decoder capability the pipeline drives. It receives a
// derived raster and the decoding hints and returns the decoded text.
type DecodeFunc func(ctx context.Context, img image.Image, hints barcode.Hints) (string, error)

// BackendFunc adapts a barcode.Backend into a DecodeFunc.
func BackendFunc(b barcode.Backend) DecodeFunc {
	return func(ctx context.Context, img image.Image, hints barcode.Hints) (string, error) {
		r, err := b.Decode(ctx, img, hints)
		if err != nil {
			return "", err
		}
		return r.Value, nil
	}
}

// Result is a successful pipeline outcome.
type Result struct {
	Text     string        `json:"text"`
	Strategy string        `json:"strategy"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration_ns"`
}

// Config controls pipeline construction.
type Config struct {
	// Strategies to run, in order. Empty means DefaultStrategies().
	Strategies []Strategy
	// Hints passed to every decoder call. Zero value means barcode.QRHints().
	Hints barcode.Hints
}

// DefaultConfig returns the standard five-strategy QR configuration.
func DefaultConfig() Config {
	return Config{Strategies: DefaultStrategies(), Hints: barcode.QRHints()}
}

// Pipeline runs the strategy fallback sequence. It holds no per-call state
// and is safe for concurrent use.
type Pipeline struct {
	strategies []Strategy
	hints      barcode.Hints
	backend    barcode.Backend
}

// New creates a pipeline. backend may be nil when only Decode with an
// explicit DecodeFunc is used.
func New(cfg Config, backend barcode.Backend) *Pipeline {
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	hints := cfg.Hints
	if len(hints.Formats) == 0 && !hints.TryHarder {
		hints = barcode.QRHints()
	}
	return &Pipeline{
		strategies: append([]Strategy(nil), strategies...),
		hints:      hints,
		backend:    backend,
	}
}

// Strategies returns a copy of the configured strategy order.
func (p *Pipeline) Strategies() []Strategy {
	return append([]Strategy(nil), p.strategies...)
}

// DecodeImage converts img to a raster and decodes it with the pipeline's backend.
func (p *Pipeline) DecodeImage(ctx context.Context, img image.Image) (Result, error) {
	if p.backend == nil {
		return Result{}, errors.New("scan: pipeline has no decoder backend")
	}
	src, err := NewRaster(img)
	if err != nil {
		// Still walk the strategies so a bad source ends as a normal exhaustion.
		src = &image.NRGBA{}
	}
	return p.Decode(ctx, src, BackendFunc(p.backend))
}

// Decode runs the strategies in order against src and returns the first
// success. Individual strategy failures are logged and skipped; if none
// succeeds the error is ErrExhausted. The context is forwarded to fn but
// does not interrupt the sequence.
func (p *Pipeline) Decode(ctx context.Context, src *image.NRGBA, fn DecodeFunc) (Result, error) {
	start := time.Now()
	for i, s := range p.strategies {
		text, err := p.attempt(ctx, src, s, fn)
		if err != nil {
			slog.Debug("Decode strategy failed", "strategy", s.Name, "attempt", i+1, "error", err)
			continue
		}
		res := Result{Text: text, Strategy: s.Name, Attempts: i + 1, Duration: time.Since(start)}
		slog.Info("QR code decoded", "strategy", s.Name, "attempts", res.Attempts, "duration", res.Duration)
		return res, nil
	}
	slog.Info("QR code not found", "strategies", len(p.strategies), "duration", time.Since(start))
	return Result{}, ErrExhausted
}

// attempt runs a single strategy. Panics from the transform or the decoder
// are turned into a StrategyError like any other failure.
func (p *Pipeline) attempt(ctx context.Context, src *image.NRGBA, s Strategy, fn DecodeFunc) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &StrategyError{Strategy: s.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	derived, err := Transform(src, s)
	if err != nil {
		return "", &StrategyError{Strategy: s.Name, Err: err}
	}
	text, err = fn(ctx, derived, p.hints)
	if err != nil {
		return "", &StrategyError{Strategy: s.Name, Err: err}
	}
	if text == "" {
		return "", &StrategyError{Strategy: s.Name, Err: ErrEmptyResult}
	}
	return text, nil
}
