// Package server exposes the scan pipeline, the generator and the scan
// history over HTTP and WebSocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/generate"
	"github.com/MeKo-Tech/qrlens/internal/history"
	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/MeKo-Tech/qrlens/internal/pdf"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *scan.Pipeline
	live        *scan.Pipeline
	pdf         *pdf.Processor
	history     *history.Store
	rateLimiter *RateLimiter

	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	generate    generate.Options
	constraints utils.ImageConstraints
}

// Config holds server configuration.
type Config struct {
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	HistorySize int
	PDFWorkers  int

	Scan        scan.Config
	Generate    generate.Options
	Constraints utils.ImageConstraints
	RateLimit   RateLimitConfig
}

// RateLimitConfig holds per-client limits. MaxDataPerDay is in bytes.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	History int    `json:"history"`
}

// ScanResult is a decoded code as reported to clients.
type ScanResult struct {
	Text       string          `json:"text"`
	Strategy   string          `json:"strategy"`
	Attempts   int             `json:"attempts"`
	DurationMs int64           `json:"duration_ms"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Payload    payload.Payload `json:"payload"`
	HistoryID  string          `json:"history_id,omitempty"`
}

// ScanResponse is returned by POST /scan/image.
type ScanResponse struct {
	Success bool        `json:"success"`
	Result  *ScanResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// NewServer creates a server around backend. A nil backend selects the
// default gozxing decoder.
func NewServer(config Config, backend barcode.Backend) *Server {
	if backend == nil {
		backend = barcode.NewBackend()
	}

	live := config.Scan
	live.Strategies = scan.DefaultStrategies()[:1]

	pl := scan.New(config.Scan, backend)

	s := &Server{
		pipeline: pl,
		live:     scan.New(live, backend),
		pdf: pdf.NewProcessor(pl, &pdf.ProcessorConfig{
			MaxWorkers:  config.PDFWorkers,
			Constraints: config.Constraints,
		}),
		history:     history.New(config.HistorySize),
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		generate:    config.Generate,
		constraints: config.Constraints,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 20
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if s.generate.Size == 0 {
		s.generate = generate.DefaultOptions()
	}
	if s.constraints.MaxWidth == 0 {
		s.constraints = utils.DefaultImageConstraints()
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// History returns the server's scan history.
func (s *Server) History() *history.Store {
	return s.history
}

// StartBackground launches maintenance goroutines that stop with ctx.
func (s *Server) StartBackground(ctx context.Context) {
	if s.rateLimiter != nil {
		go s.rateLimiter.RunPruner(ctx, time.Hour)
	}
}

// SetupRoutes configures the HTTP routes on r.
func (s *Server) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.corsMiddleware(s.healthHandler)).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	r.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler))).
		Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler))).
		Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/generate", s.corsMiddleware(s.rateLimitMiddleware(s.generateHandler))).
		Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/history", s.corsMiddleware(s.listHistoryHandler)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/history", s.corsMiddleware(s.clearHistoryHandler)).Methods(http.MethodDelete)
	r.HandleFunc("/history/{id}", s.corsMiddleware(s.getHistoryHandler)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/history/{id}", s.corsMiddleware(s.deleteHistoryHandler)).Methods(http.MethodDelete)

	r.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.liveScanHandler)).Methods(http.MethodGet)
}

// Handler returns a router with all routes installed.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.SetupRoutes(r)
	return r
}
