// Package batch scans many image files for QR codes in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/scan"
)

// ErrNoImages is returned when discovery finds nothing to scan.
var ErrNoImages = errors.New("no image files found")

// Result holds the result of batch processing.
type Result struct {
	Results     []ImageResult `json:"images"`
	Duration    time.Duration `json:"-"`
	WorkerCount int           `json:"-"`
}

// Stats summarises a batch run.
type Stats struct {
	Total           int
	Found           int
	NotFound        int
	Failed          int
	WorkerCount     int
	TotalDuration   time.Duration
	AveragePerImage time.Duration
	ByStrategy      map[string]int
}

// ProcessBatch discovers images under paths and scans them with pl.
func ProcessBatch(ctx context.Context, pl *scan.Pipeline, paths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var progress ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(os.Stderr, "Scanning: ").WithUpdateInterval(config.ProgressInterval)
	}

	start := time.Now()
	results, err := processImagesParallel(ctx, pl, config.constraints(), files, config.Workers, config.ContinueOnError, progress)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Results:     results,
		Duration:    time.Since(start),
		WorkerCount: config.Workers,
	}, nil
}

// Stats computes summary statistics.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:         len(r.Results),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
		ByStrategy:    make(map[string]int),
	}
	for _, res := range r.Results {
		switch {
		case res.Failed():
			s.Failed++
		case res.Found:
			s.Found++
			s.ByStrategy[res.Strategy]++
		default:
			s.NotFound++
		}
	}
	if s.Total > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Total)
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Results, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := fmt.Fprint(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Codes found: %d\n", s.Found)
	_, _ = fmt.Fprintf(w, "  No code: %d\n", s.NotFound)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	for _, st := range scan.DefaultStrategies() {
		if n := s.ByStrategy[st.Name]; n > 0 {
			_, _ = fmt.Fprintf(w, "    via %s: %d\n", st.Name, n)
		}
	}
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", s.AveragePerImage.Round(time.Millisecond))
}
