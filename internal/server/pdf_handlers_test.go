package server

import (
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/pdf"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
)

type pdfResponse struct {
	Success  bool                `json:"success"`
	Document *pdf.DocumentResult `json:"document"`
	Found    int                 `json:"found"`
}

func readPDF(t *testing.T, texts ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(testutil.WriteQRPDF(t, texts...))
	require.NoError(t, err)
	return data
}

func TestScanPDF_Found(t *testing.T) {
	s := newTestServer(t, nil)
	data := readPDF(t, "first page", "https://second.test")

	rec := doUpload(t, s.Handler(), "/scan/pdf", "pdf", "codes.pdf", data, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[pdfResponse](t, rec)
	require.True(t, resp.Success)
	assert.Equal(t, 2, resp.Found)
	require.Len(t, resp.Document.Pages, 2)
	assert.Equal(t, "first page", resp.Document.Pages[0].Images[0].Text)
	assert.Equal(t, "https://second.test", resp.Document.Pages[1].Images[0].Text)

	entries := s.History().List()
	require.Len(t, entries, 2)
	assert.Equal(t, "pdf:codes.pdf#2", entries[0].Source)
}

func TestScanPDF_PageSelection(t *testing.T) {
	s := newTestServer(t, nil)
	data := readPDF(t, "one", "two", "three")

	rec := doUpload(t, s.Handler(), "/scan/pdf", "pdf", "codes.pdf", data, map[string]string{"pages": "2-3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[pdfResponse](t, rec)
	require.Len(t, resp.Document.Pages, 2)
	assert.Equal(t, 2, resp.Document.Pages[0].PageNumber)
	assert.Equal(t, "three", resp.Document.Pages[1].Images[0].Text)
}

func TestScanPDF_TextFormat(t *testing.T) {
	s := newTestServer(t, nil)
	data := readPDF(t, "hello pdf")

	rec := doUpload(t, s.Handler(), "/scan/pdf?format=text", "pdf", "doc.pdf", data, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "page 1 image 0: hello pdf (Normal)")
}

func TestScanPDF_Errors(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	t.Run("missing file", func(t *testing.T) {
		rec := doUpload(t, h, "/scan/pdf", "pdf", "", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "No pdf file provided")
	})

	t.Run("bad page range", func(t *testing.T) {
		rec := doUpload(t, h, "/scan/pdf", "pdf", "a.pdf", readPDF(t, "x"), map[string]string{"pages": "3-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not a pdf", func(t *testing.T) {
		rec := doUpload(t, h, "/scan/pdf", "pdf", "a.pdf", []byte("definitely not a pdf"), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "scan_failed", decodeBody[ErrorResponse](t, rec).Code)
	})
}
