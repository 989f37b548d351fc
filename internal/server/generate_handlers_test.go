package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

func TestGenerateHandler_RendersDecodablePNG(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"url", map[string]any{"type": "url", "url": "https://qrlens.test"}, "https://qrlens.test"},
		{
			"wifi",
			map[string]any{"type": "wifi", "wifi": map[string]string{"ssid": "home", "security": "WPA", "password": "pw"}},
			"WIFI:S:home;T:WPA;P:pw;;",
		},
		{
			"vcard",
			map[string]any{"type": "vcard", "vcard": map[string]string{"name": "Ada", "tel": "123", "email": "a@b.c"}},
			"BEGIN:VCARD\nVERSION:3.0\nFN:Ada\nTEL:123\nEMAIL:a@b.c\nEND:VCARD",
		},
	}
	pl := scan.New(scan.DefaultConfig(), barcode.NewBackend())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/generate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

			img, meta, err := utils.DecodeImageBytes(rec.Body.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "png", meta.Format)

			res, err := pl.DecodeImage(context.Background(), img)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestGenerateHandler_Size(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := doJSON(t, h, http.MethodPost, "/generate", map[string]any{"url": "x", "size": 300})
	require.Equal(t, http.StatusOK, rec.Code)
	img, _, err := utils.DecodeImageBytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 340, img.Bounds().Dx(), "size plus padding on both sides")
}

func TestGenerateHandler_Rejects(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"empty url", map[string]any{"type": "url", "url": ""}, "invalid content"},
		{"placeholder", map[string]any{"type": "url", "url": "https://"}, "invalid content"},
		{"unknown type", map[string]any{"type": "sms", "url": "x"}, "invalid type"},
		{"negative size", map[string]any{"url": "x", "size": -5}, "invalid size"},
		{"huge size", map[string]any{"url": "x", "size": 100000}, "invalid size"},
		{"unknown field", map[string]any{"url": "x", "color": "red"}, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/generate", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, tt.want)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "size", Message: "must be positive"}
	assert.Equal(t, "invalid size: must be positive", err.Error())
}
