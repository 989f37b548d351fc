package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/pdf"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
)

func TestPDFCommand_Text(t *testing.T) {
	isolate(t)
	file := testutil.WriteQRPDF(t, "page one", "page two")

	out, _, err := execute(t, "", "pdf", file)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 pages)")
	assert.Contains(t, out, "page one")
	assert.Contains(t, out, "page two")
	assert.Regexp(t, `page 2 image \d+: page two`, out)
}

func TestPDFCommand_JSONWithPages(t *testing.T) {
	isolate(t)
	file := testutil.WriteQRPDF(t, "a", "b", "c")

	out, _, err := execute(t, "", "pdf", file, "--pages", "2-3", "--format", "json", "--workers", "2")
	require.NoError(t, err)

	var doc pdf.DocumentResult
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	codes := doc.Codes()
	require.Len(t, codes, 2)
	assert.Equal(t, 2, codes[0].Page)
	assert.Equal(t, "b", codes[0].Text)
	assert.Equal(t, 3, codes[1].Page)
	assert.Equal(t, "c", codes[1].Text)
}

func TestPDFCommand_OutputFile(t *testing.T) {
	dir := isolate(t)
	file := testutil.WriteQRPDF(t, "saved")
	target := filepath.Join(dir, "doc.txt")

	out, _, err := execute(t, "", "pdf", file, "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, testutil.FileExists(target))
}

func TestPDFCommand_Errors(t *testing.T) {
	dir := isolate(t)
	file := testutil.WriteQRPDF(t, "x")

	_, _, err := execute(t, "", "pdf", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)

	_, _, err = execute(t, "", "pdf", file, "--pages", "3-1")
	require.ErrorIs(t, err, pdf.ErrInvalidPageRange)

	_, _, err = execute(t, "", "pdf", file, "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
