package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/batch"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
)

func batchFixtures(t *testing.T, dir string) {
	t.Helper()
	writeQRFixture(t, dir, "a.png", "alpha")
	writeQRFixture(t, dir, "b.png", "bravo")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeQRFixture(t, sub, "c.png", "charlie")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))
}

func byText(results []batch.ImageResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		out[filepath.Base(r.File)] = r.Text
	}
	return out
}

func TestBatchCommand_JSON(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)

	out, _, err := execute(t, "", "batch", dir, "--format", "json", "--quiet")
	require.NoError(t, err)

	got := byText(decodeImages(t, out))
	assert.Equal(t, map[string]string{"a.png": "alpha", "b.png": "bravo"}, got)
}

func TestBatchCommand_RecursiveWithPatterns(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)

	out, _, err := execute(t, "", "batch", dir, "-r", "-f", "json", "-q",
		"--workers", "2", "--exclude", "b.png")
	require.NoError(t, err)

	got := byText(decodeImages(t, out))
	assert.Equal(t, map[string]string{"a.png": "alpha", "c.png": "charlie"}, got)
}

func TestBatchCommand_RejectsUndersizedImages(t *testing.T) {
	dir := isolate(t)
	writeQRFixture(t, dir, "a.png", "alpha")
	testutil.SaveImage(t, testutil.GradientImage(10, 10), filepath.Join(dir, "tiny.png"))

	out, _, err := execute(t, "", "batch", dir, "-f", "json", "-q")
	require.NoError(t, err)

	results := decodeImages(t, out)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Text)
	assert.Equal(t, "tiny.png", filepath.Base(results[1].File))
	assert.True(t, results[1].Failed())
	assert.Contains(t, results[1].Error, "too small")

	_, _, err = execute(t, "", "batch", dir, "-q", "--continue-on-error=false")
	assert.Error(t, err)
}

func TestBatchCommand_StatsAndCSV(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)

	out, _, err := execute(t, "", "batch", dir, "--format", "csv", "--quiet", "--stats")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "file,found,kind,strategy,attempts,text,error", lines[0])
	assert.Contains(t, out, "Processing Statistics:")
	assert.Contains(t, out, "Codes found: 2")
}

func TestBatchCommand_ConfigFileSetsWorkers(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)
	cfgPath := filepath.Join(dir, "qrlens.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("batch:\n  recursive: true\noutput:\n  format: json\n"), 0o600))

	out, _, err := execute(t, "", "batch", dir, "--quiet")
	require.NoError(t, err)
	assert.Len(t, decodeImages(t, out), 3, "recursive and json come from ./qrlens.yaml")
}

func TestBatchCommand_NoImages(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "", "batch", dir, "--quiet")
	require.ErrorIs(t, err, batch.ErrNoImages)
}

func TestBatchCommand_InvalidFormat(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)

	_, _, err := execute(t, "", "batch", dir, "--format", "xml")
	require.Error(t, err)
}

func TestBenchCommand(t *testing.T) {
	dir := isolate(t)
	batchFixtures(t, dir)

	out, _, err := execute(t, "", "bench", dir, "-n", "1", "--recursive")
	require.NoError(t, err)
	assert.Contains(t, out, "QR Strategy Benchmark Results")
	assert.Contains(t, out, "Images: 3, passes: 1")
	assert.Contains(t, out, "Full pipeline: 100% decoded")

	report := filepath.Join(dir, "bench.txt")
	out, _, err = execute(t, "", "bench", dir, "-n", "1", "-o", report, "--strategies", "Normal")
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to")
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Normal")
	assert.NotContains(t, string(data), "Binarize")
}

func TestBenchCommand_NoImages(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "", "bench", dir)
	require.ErrorIs(t, err, batch.ErrNoImages)
}
