package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/generate"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestGenerateCommand_URLRoundTrip(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "site.png")

	out, _, err := execute(t, "", "generate", "  https://example.com/x  ", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "QR code written to "+target)

	img := testutil.LoadImage(t, target)
	size := generate.DefaultSize + 2*generate.DefaultPadding
	assert.Equal(t, size, img.Bounds().Dx())

	out, _, err = execute(t, "", "image", target)
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/x\n")
}

func TestGenerateCommand_DefaultOutputInWorkingDir(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "", "generate", "https://example.com")
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(filepath.Join(dir, "qrcode.png")))
}

func TestGenerateCommand_WiFiToStdout(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "", "generate", "--type", "wifi",
		"--ssid", "HomeNet", "--password", "secret", "-o", "-")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix([]byte(out), pngMagic))
}

func TestGenerateCommand_VCardSizeAndPadding(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "card.png")

	_, _, err := execute(t, "", "generate", "--type", "vcard", "--name", "Ada Lovelace",
		"--tel", "+44 1234", "--email", "ada@example.com",
		"--size", "300", "--padding", "0", "--error-correction", "m", "-o", target)
	require.NoError(t, err)
	assert.Equal(t, 300, testutil.LoadImage(t, target).Bounds().Dx())

	out, _, err := execute(t, "", "image", target, "--format", "json")
	require.NoError(t, err)
	images := decodeImages(t, out)
	require.Len(t, images, 1)
	require.NotNil(t, images[0].Payload)
	require.NotNil(t, images[0].Payload.Contact)
	assert.Equal(t, "Ada Lovelace", images[0].Payload.Contact.Name)
}

func TestGenerateCommand_Errors(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "", "generate")
	require.ErrorIs(t, err, generate.ErrEmptyContent)

	_, _, err = execute(t, "", "generate", "https://")
	require.ErrorIs(t, err, generate.ErrEmptyContent)

	_, _, err = execute(t, "", "generate", "--type", "sms", "x")
	require.ErrorIs(t, err, generate.ErrUnknownType)

	_, _, err = execute(t, "", "generate", "https://example.com", "--size", "0")
	require.Error(t, err)

	_, _, err = execute(t, "", "generate", "https://example.com", "--error-correction", "Z")
	require.Error(t, err)
}
