package batch

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressCallback(t *testing.T) {
	callback := NoOpProgressCallback{}
	callback.OnStart(10)
	callback.OnProgress(5, 10)
	callback.OnComplete()
	callback.OnError(3, assert.AnError)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	callback := NewConsoleProgressCallback(&buf, "Test: ").WithWidth(10).WithUpdateInterval(0)

	callback.OnStart(10)
	assert.Contains(t, buf.String(), "Test: 0/10 (0.0%)")

	buf.Reset()
	callback.OnProgress(5, 10)
	assert.Contains(t, buf.String(), "5/10")
	assert.Contains(t, buf.String(), "50.0%")
	assert.Contains(t, buf.String(), "█████░░░░░")

	buf.Reset()
	callback.OnComplete()
	assert.Contains(t, buf.String(), "Test: Completed")

	buf.Reset()
	callback.OnError(3, assert.AnError)
	assert.Contains(t, buf.String(), "Test: Error at item 3")
}

func TestConsoleProgressCallback_Throttles(t *testing.T) {
	var buf bytes.Buffer
	callback := NewConsoleProgressCallback(&buf, "").WithUpdateInterval(time.Hour)
	callback.OnStart(3)

	buf.Reset()
	callback.OnProgress(1, 3)
	first := buf.Len()
	callback.OnProgress(2, 3)
	assert.Equal(t, first, buf.Len(), "second update inside the interval is dropped")
	callback.OnProgress(3, 3)
	assert.Greater(t, buf.Len(), first, "final update is always drawn")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	callback := NewLogProgressCallback(logger, 2)

	callback.OnStart(4)
	callback.OnProgress(1, 4)
	callback.OnProgress(2, 4)
	callback.OnProgress(4, 4)
	callback.OnError(3, assert.AnError)
	callback.OnComplete()

	out := buf.String()
	assert.Contains(t, out, `"msg":"Batch started"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"msg":"Batch progress"`)))
	assert.Contains(t, out, `"msg":"Batch item failed"`)
	assert.Contains(t, out, `"msg":"Batch completed"`)
}
