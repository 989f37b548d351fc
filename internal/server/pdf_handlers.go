package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/qrlens/internal/pdf"
)

// scanPDFHandler extracts the images of an uploaded PDF and scans each one.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := s.readUpload(w, r, "pdf")
	if !ok {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return
	}

	var creds *pdf.Credentials
	if pw := r.FormValue("password"); pw != "" {
		creds = &pdf.Credentials{UserPassword: pw, OwnerPassword: pw}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	doc, err := s.pdf.ProcessReader(ctx, filename, bytes.NewReader(data), r.FormValue("pages"), creds)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		switch {
		case errors.Is(err, pdf.ErrInvalidPageRange):
			s.writeErrorResponse(w, err.Error(), codeBadRequest, http.StatusBadRequest)
		case errors.Is(err, pdf.ErrPasswordRequired):
			s.writeErrorResponse(w, "PDF is encrypted; a valid password is required", codePasswordRequired,
				http.StatusUnauthorized)
		case errors.Is(err, context.DeadlineExceeded):
			s.writeErrorResponse(w, "PDF scan timed out", codeTimeout, http.StatusGatewayTimeout)
		default:
			s.writeErrorResponse(w, fmt.Sprintf("PDF scan failed: %v", err), codeScanFailed,
				http.StatusUnprocessableEntity)
		}
		return
	}

	codes := doc.Codes()
	for _, c := range codes {
		s.history.Add(c.Text, c.Strategy, fmt.Sprintf("pdf:%s#%d", filename, c.Page))
		scanWinningStrategy.WithLabelValues(c.Strategy).Inc()
	}
	historyEntries.Set(float64(s.history.Len()))

	status := "found"
	if len(codes) == 0 {
		status = "not_found"
	}
	scanRequestsTotal.WithLabelValues("pdf", status).Inc()
	scanDuration.WithLabelValues("pdf").Observe(float64(doc.Processing.TotalTimeMs) / 1000)

	if formatParam(r) == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(formatPDFText(doc)))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool                `json:"success"`
		Document *pdf.DocumentResult `json:"document"`
		Found    int                 `json:"found"`
	}{Success: true, Document: doc, Found: len(codes)})
}

// formatPDFText renders one line per scanned image.
func formatPDFText(doc *pdf.DocumentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", doc.Filename)
	fmt.Fprintf(&b, "Pages with images: %d\n", doc.TotalPages)
	for _, page := range doc.Pages {
		for _, img := range page.Images {
			switch {
			case img.Found:
				fmt.Fprintf(&b, "page %d image %d: %s (%s)\n", page.PageNumber, img.ImageIndex, img.Text, img.Strategy)
			case img.Error != "":
				fmt.Fprintf(&b, "page %d image %d: error: %s\n", page.PageNumber, img.ImageIndex, img.Error)
			default:
				fmt.Fprintf(&b, "page %d image %d: no code\n", page.PageNumber, img.ImageIndex)
			}
		}
	}
	return b.String()
}
