package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// ImageResult is the scan outcome for one file.
type ImageResult struct {
	File       string           `json:"file"`
	Found      bool             `json:"found"`
	Text       string           `json:"text,omitempty"`
	Strategy   string           `json:"strategy,omitempty"`
	Attempts   int              `json:"attempts"`
	Payload    *payload.Payload `json:"payload,omitempty"`
	Width      int              `json:"width,omitempty"`
	Height     int              `json:"height,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// Failed reports whether the file could not be scanned at all. A file that
// was scanned but holds no code is not a failure.
func (r ImageResult) Failed() bool { return r.Error != "" }

// ScanFile loads path, fits it into constraints and runs it through the
// pipeline. The returned error is non-nil only when the file could not be
// scanned at all; the same message is recorded in the result.
func ScanFile(ctx context.Context, pl *scan.Pipeline, constraints utils.ImageConstraints, path string) (ImageResult, error) {
	start := time.Now()
	res := ImageResult{File: path}

	img, meta, err := utils.LoadImage(path)
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res.Width, res.Height = meta.Width, meta.Height

	img, err = utils.PrepareImage(img, constraints)
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("rejected %s: %w", path, err)
	}

	out, err := pl.DecodeImage(ctx, img)
	res.DurationMs = time.Since(start).Milliseconds()
	switch {
	case err == nil:
		pld := payload.Classify(out.Text)
		res.Found = true
		res.Text = out.Text
		res.Strategy = out.Strategy
		res.Attempts = out.Attempts
		res.Payload = &pld
	case errors.Is(err, scan.ErrExhausted):
		res.Attempts = len(pl.Strategies())
	default:
		res.Error = err.Error()
		return res, fmt.Errorf("scan failed for %s: %w", path, err)
	}
	return res, nil
}

type imageJob struct {
	index int
	path  string
}

type imageOutcome struct {
	index  int
	result ImageResult
	err    error
}

// processImagesParallel scans files on a worker pool and returns results in
// input order. Unless continueOnError is set, the first failure stops
// scheduling further files and is returned.
func processImagesParallel(ctx context.Context, pl *scan.Pipeline, constraints utils.ImageConstraints,
	files []string, workers int, continueOnError bool, progress ProgressCallback,
) ([]ImageResult, error) {
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(files)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress.OnStart(len(files))
	defer progress.OnComplete()

	jobs := make(chan imageJob)
	outcomes := make(chan imageOutcome, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := ScanFile(ctx, pl, constraints, job.path)
				outcomes <- imageOutcome{index: job.index, result: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- imageJob{index: i, path: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]ImageResult, len(files))
	done := make([]bool, len(files))
	var firstErr error
	processed := 0
	for o := range outcomes {
		results[o.index] = o.result
		done[o.index] = true
		processed++
		if o.err != nil {
			progress.OnError(o.index, o.err)
			if !continueOnError && firstErr == nil {
				firstErr = o.err
				cancel()
			}
		}
		progress.OnProgress(processed, len(files))
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, ok := range done {
		if !ok {
			results[i] = ImageResult{File: files[i], Error: "not processed"}
		}
	}
	return results, nil
}
