package benchmark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/scan"
)

// PipelineName labels the full fallback sequence in strategy reports.
const PipelineName = "Pipeline"

// Image is a named benchmark input.
type Image struct {
	Name  string
	Image image.Image
}

// StrategyResult reports how one strategy fared over all images.
type StrategyResult struct {
	Strategy string
	Images   int
	Decoded  int
	Result   Result
}

// PerImage is the mean time spent on one image.
func (r StrategyResult) PerImage() time.Duration {
	n := r.Result.Iterations * r.Images
	if n == 0 {
		return 0
	}
	return r.Result.Duration / time.Duration(n)
}

// Coverage is the fraction of images the strategy decoded.
func (r StrategyResult) Coverage() float64 {
	if r.Images == 0 {
		return 0
	}
	return float64(r.Decoded) / float64(r.Images)
}

// StrategyBenchmark runs every strategy on its own, then the full pipeline,
// over the same images.
type StrategyBenchmark struct {
	backend    barcode.Backend
	hints      barcode.Hints
	strategies []scan.Strategy
	images     []Image
	results    []StrategyResult
}

// NewStrategyBenchmark creates a benchmark over strategies. Empty means the
// default sequence.
func NewStrategyBenchmark(backend barcode.Backend, cfg scan.Config) *StrategyBenchmark {
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = scan.DefaultStrategies()
	}
	return &StrategyBenchmark{backend: backend, hints: cfg.Hints, strategies: strategies}
}

// AddImage registers an input image.
func (b *StrategyBenchmark) AddImage(name string, img image.Image) {
	b.images = append(b.images, Image{Name: name, Image: img})
}

// Run measures each strategy for the given number of passes over all images.
func (b *StrategyBenchmark) Run(ctx context.Context, iterations int) ([]StrategyResult, error) {
	if len(b.images) == 0 {
		return nil, errors.New("benchmark: no images")
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("benchmark: iterations must be positive, got %d", iterations)
	}

	suite := NewSuite()
	decoded := make(map[string]int)
	add := func(name string, pl *scan.Pipeline) {
		first := true
		suite.Add(name, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, img := range b.images {
				_, err := pl.DecodeImage(ctx, img.Image)
				if err != nil && !errors.Is(err, scan.ErrExhausted) {
					return fmt.Errorf("%s: %w", img.Name, err)
				}
				// Decoding is deterministic; count hits on the first pass only.
				if first && err == nil {
					decoded[name]++
				}
			}
			first = false
			return nil
		})
	}
	for _, s := range b.strategies {
		add(s.Name, scan.New(scan.Config{Strategies: []scan.Strategy{s}, Hints: b.hints}, b.backend))
	}
	add(PipelineName, scan.New(scan.Config{Strategies: b.strategies, Hints: b.hints}, b.backend))

	b.results = b.results[:0]
	for _, r := range suite.RunAll(iterations) {
		if r.Error != nil {
			return nil, r.Error
		}
		b.results = append(b.results, StrategyResult{
			Strategy: r.Name,
			Images:   len(b.images),
			Decoded:  decoded[r.Name],
			Result:   r,
		})
	}
	return b.results, nil
}

// Results returns the results of the last Run.
func (b *StrategyBenchmark) Results() []StrategyResult {
	return b.results
}

// WriteReport prints system information, a per-strategy table and a summary.
func (b *StrategyBenchmark) WriteReport(w io.Writer) {
	if len(b.results) == 0 {
		_, _ = fmt.Fprintln(w, "No benchmark results available")
		return
	}

	_, _ = fmt.Fprintln(w, strings.Repeat("=", 64))
	_, _ = fmt.Fprintln(w, "QR Strategy Benchmark Results")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 64))
	_, _ = fmt.Fprintf(w, "System: %s/%s, %d CPUs, %s\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())
	_, _ = fmt.Fprintf(w, "Images: %d, passes: %d\n\n", b.results[0].Images, b.results[0].Result.Iterations)

	_, _ = fmt.Fprintf(w, "%-10s %10s %12s %12s\n", "Strategy", "Decoded", "Per image", "Alloc KB")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 48))
	for _, r := range b.results {
		_, _ = fmt.Fprintf(w, "%-10s %6d/%-3d %12v %12d\n",
			r.Strategy, r.Decoded, r.Images, r.PerImage().Round(time.Microsecond), r.Result.AllocatedKB())
	}
	_, _ = fmt.Fprintln(w)

	best, fastest := b.summary()
	_, _ = fmt.Fprintln(w, "Summary:")
	_, _ = fmt.Fprintf(w, "  Best single strategy: %s (%.0f%% decoded)\n", best.Strategy, best.Coverage()*100)
	_, _ = fmt.Fprintf(w, "  Fastest single strategy: %s (%v per image)\n", fastest.Strategy, fastest.PerImage().Round(time.Microsecond))
	if p, ok := b.pipeline(); ok {
		_, _ = fmt.Fprintf(w, "  Full pipeline: %.0f%% decoded, %v per image\n", p.Coverage()*100, p.PerImage().Round(time.Microsecond))
	}
}

// summary picks the single strategy with the best coverage (ties go to the
// faster one) and the fastest single strategy.
func (b *StrategyBenchmark) summary() (best, fastest StrategyResult) {
	first := true
	for _, r := range b.results {
		if r.Strategy == PipelineName {
			continue
		}
		if first {
			best, fastest, first = r, r, false
			continue
		}
		if r.Decoded > best.Decoded || (r.Decoded == best.Decoded && r.PerImage() < best.PerImage()) {
			best = r
		}
		if r.PerImage() < fastest.PerImage() {
			fastest = r
		}
	}
	return best, fastest
}

func (b *StrategyBenchmark) pipeline() (StrategyResult, bool) {
	for _, r := range b.results {
		if r.Strategy == PipelineName {
			return r, true
		}
	}
	return StrategyResult{}, false
}
