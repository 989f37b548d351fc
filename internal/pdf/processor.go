package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// ProcessorConfig contains configuration for PDF scanning.
type ProcessorConfig struct {
	// MaxWorkers bounds concurrent image scans. 0 means runtime.NumCPU().
	MaxWorkers int
	// Constraints bounds each extracted image before decoding. The zero
	// value selects utils.DefaultImageConstraints.
	Constraints utils.ImageConstraints
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{}
}

// Processor scans every image embedded in a PDF with the decode pipeline.
type Processor struct {
	pipeline *scan.Pipeline
	config   *ProcessorConfig
}

// NewProcessor creates a PDF processor around p.
func NewProcessor(p *scan.Pipeline, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	if config.Constraints == (utils.ImageConstraints{}) {
		c := *config
		c.Constraints = utils.DefaultImageConstraints()
		config = &c
	}
	return &Processor{pipeline: p, config: config}
}

// ProcessFile scans a PDF file.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string, creds *Credentials) (*DocumentResult, error) {
	start := time.Now()
	images, err := ExtractImagesFile(ctx, filename, pageRange, creds)
	if err != nil {
		return nil, err
	}
	return p.process(ctx, filename, images, start)
}

// ProcessReader scans a PDF read from rs. name is only used for reporting.
func (p *Processor) ProcessReader(ctx context.Context, name string, rs io.ReadSeeker, pageRange string,
	creds *Credentials,
) (*DocumentResult, error) {
	start := time.Now()
	images, err := ExtractImages(ctx, rs, pageRange, creds)
	if err != nil {
		return nil, err
	}
	return p.process(ctx, name, images, start)
}

func (p *Processor) process(ctx context.Context, name string, images []PageImage, start time.Time) (*DocumentResult, error) {
	extractTime := time.Since(start)
	scanStart := time.Now()

	results := p.scanAll(ctx, images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &DocumentResult{Filename: name}
	for _, r := range results {
		n := len(doc.Pages)
		if n == 0 || doc.Pages[n-1].PageNumber != r.Page {
			doc.Pages = append(doc.Pages, PageResult{PageNumber: r.Page})
			n++
		}
		doc.Pages[n-1].Images = append(doc.Pages[n-1].Images, r)
	}
	doc.TotalPages = len(doc.Pages)
	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: extractTime.Milliseconds(),
		ScanTimeMs:       time.Since(scanStart).Milliseconds(),
		TotalTimeMs:      time.Since(start).Milliseconds(),
	}

	slog.Info("PDF scanned", "file", name, "images", len(images), "codes", len(doc.Codes()),
		"duration", time.Since(start))
	return doc, nil
}

// scanAll decodes images on a bounded worker pool. Results keep the input order.
func (p *Processor) scanAll(ctx context.Context, images []PageImage) []CodeResult {
	results := make([]CodeResult, len(images))
	if len(images) == 0 {
		return results
	}

	workers := p.config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(images)))

	jobs := make(chan int, len(images))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.scanOne(ctx, images[i])
			}
		}()
	}
	for i := range images {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (p *Processor) scanOne(ctx context.Context, img PageImage) CodeResult {
	b := img.Image.Bounds()
	r := CodeResult{Page: img.Page, ImageIndex: img.Index, Width: b.Dx(), Height: b.Dy()}

	prepared, err := utils.PrepareImage(img.Image, p.config.Constraints)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	res, err := p.pipeline.DecodeImage(ctx, prepared)
	switch {
	case err == nil:
		pl := payload.Classify(res.Text)
		r.Found = true
		r.Text = res.Text
		r.Strategy = res.Strategy
		r.Attempts = res.Attempts
		r.Payload = &pl
	case errors.Is(err, scan.ErrExhausted):
		r.Attempts = len(p.pipeline.Strategies())
	default:
		r.Error = fmt.Sprintf("scan failed: %v", err)
	}
	return r
}
