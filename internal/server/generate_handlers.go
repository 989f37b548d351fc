package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MeKo-Tech/qrlens/internal/generate"
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// generateHandler renders a QR code PNG from a typed JSON request.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req generate.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		generateRequestsTotal.WithLabelValues("unknown", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Invalid JSON body: %v", err), codeBadRequest, http.StatusBadRequest)
		return
	}

	text, opts, err := s.validateGenerate(req)
	if err != nil {
		generateRequestsTotal.WithLabelValues(string(req.Type), "error").Inc()
		s.writeErrorResponse(w, err.Error(), codeBadRequest, http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := generate.WritePNG(&buf, text, opts); err != nil {
		generateRequestsTotal.WithLabelValues(string(req.Type), "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Generation failed: %v", err), "generate_failed",
			http.StatusUnprocessableEntity)
		return
	}

	generateRequestsTotal.WithLabelValues(string(req.Type), "success").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="qrcode.png"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) validateGenerate(req generate.Request) (string, generate.Options, error) {
	opts := s.generate
	if req.Size != 0 {
		if req.Size < 0 || req.Size > generate.MaxSize {
			return "", opts, &ValidationError{Field: "size", Message: fmt.Sprintf("must be between 1 and %d", generate.MaxSize)}
		}
		opts.Size = req.Size
	}

	text, err := req.Content()
	switch {
	case errors.Is(err, generate.ErrEmptyContent):
		return "", opts, &ValidationError{Field: "content", Message: "nothing to encode"}
	case errors.Is(err, generate.ErrUnknownType):
		return "", opts, &ValidationError{Field: "type", Message: fmt.Sprintf("unsupported type %q", req.Type)}
	case err != nil:
		return "", opts, err
	}
	return text, opts, nil
}
