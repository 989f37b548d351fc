package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
	"github.com/MeKo-Tech/qrlens/internal/version"
)

// Error codes carried in ErrorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeTooLarge         = "file_too_large"
	codeInvalidImage     = "invalid_image"
	codeNotFound         = "qr_not_found"
	codePasswordRequired = "password_required"
	codeScanFailed       = "scan_failed"
	codeTimeout          = "timeout"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		History: s.history.Len(),
	})
}

// scanImageHandler decodes an uploaded image with the full strategy sequence.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	data, _, ok := s.readUpload(w, r, "image")
	if !ok {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		return
	}

	img, ok := s.decodeUpload(w, data)
	if !ok {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.pipeline.DecodeImage(ctx, img)
	scanDuration.WithLabelValues("image").Observe(res.Duration.Seconds())
	switch {
	case err != nil && ctx.Err() != nil:
		// The backend fails every strategy once the deadline passes.
		scanRequestsTotal.WithLabelValues("image", "timeout").Inc()
		s.writeErrorResponse(w, "Image scan timed out", codeTimeout, http.StatusGatewayTimeout)
		return
	case errors.Is(err, scan.ErrExhausted):
		scanRequestsTotal.WithLabelValues("image", "not_found").Inc()
		s.writeErrorResponse(w, "No QR code found in image", codeNotFound, http.StatusUnprocessableEntity)
		return
	case err != nil:
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), codeScanFailed, http.StatusInternalServerError)
		return
	}

	scanRequestsTotal.WithLabelValues("image", "found").Inc()
	scanWinningStrategy.WithLabelValues(res.Strategy).Inc()

	b := img.Bounds()
	result := s.record(res, "image")
	result.Width, result.Height = b.Dx(), b.Dy()
	writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: &result})
}

// record stores a decode in the history and builds its client view.
func (s *Server) record(res scan.Result, source string) ScanResult {
	entry := s.history.Add(res.Text, res.Strategy, source)
	historyEntries.Set(float64(s.history.Len()))
	return ScanResult{
		Text:       res.Text,
		Strategy:   res.Strategy,
		Attempts:   res.Attempts,
		DurationMs: res.Duration.Milliseconds(),
		Payload:    payload.Classify(res.Text),
		HistoryID:  entry.ID,
	}
}

// readUpload reads the multipart file in field, enforcing the upload limit.
// On failure the error response has already been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, "File too large", codeTooLarge, http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", codeBadRequest, http.StatusBadRequest)
		}
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("No %s file provided", field), codeBadRequest, http.StatusBadRequest)
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", codeTooLarge, http.StatusRequestEntityTooLarge)
		return nil, "", false
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read upload", codeBadRequest, http.StatusBadRequest)
		return nil, "", false
	}
	return data, header.Filename, true
}

// decodeUpload turns raw bytes into an image ready for scanning. On failure
// the error response has already been written.
func (s *Server) decodeUpload(w http.ResponseWriter, data []byte) (image.Image, bool) {
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", codeInvalidImage, http.StatusBadRequest)
		return nil, false
	}
	img, err = utils.PrepareImage(img, s.constraints)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), codeInvalidImage, http.StatusBadRequest)
		return nil, false
	}
	return img, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message, Code: code})
}

// formatParam reads the output format from the form or the query string.
func formatParam(r *http.Request) string {
	f := r.FormValue("format")
	if f == "" {
		f = r.URL.Query().Get("format")
	}
	return strings.ToLower(f)
}
