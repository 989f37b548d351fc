package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDecoder records the size of every raster it sees and answers
// from a per-call script.
type recordingDecoder struct {
	mu     sync.Mutex
	calls  []image.Rectangle
	hints  []barcode.Hints
	answer func(call int, img image.Image) (string, error)
}

func (r *recordingDecoder) decode(_ context.Context, img image.Image, hints barcode.Hints) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, img.Bounds())
	r.hints = append(r.hints, hints)
	n := len(r.calls)
	r.mu.Unlock()
	return r.answer(n, img)
}

var errNoCode = errors.New("not found")

// strategyNamesFromCalls maps the recorded call sequence back to strategy
// names using the pipeline order.
func strategyNamesFromCalls(p *Pipeline, n int) []string {
	names := make([]string, 0, n)
	for i, s := range p.Strategies() {
		if i >= n {
			break
		}
		names = append(names, s.Name)
	}
	return names
}

func TestPipeline_ShortCircuitsOnSecondStrategy(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(call int, _ image.Image) (string, error) {
		if call == 2 {
			return "hello", nil
		}
		if call > 2 {
			panic("strategy ran after success")
		}
		return "", errNoCode
	}}

	res, err := p.Decode(context.Background(), testutil.GradientImage(20, 10), dec.decode)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, StrategyContrast, res.Strategy)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, dec.calls, 2)
}

func TestPipeline_ExhaustsInOrder(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(int, image.Image) (string, error) { return "", errNoCode }}

	_, err := p.Decode(context.Background(), testutil.GradientImage(20, 10), dec.decode)
	require.ErrorIs(t, err, ErrExhausted)
	require.Len(t, dec.calls, 5)

	assert.Equal(t,
		[]string{"Normal", "Contrast", "Invert", "Scale2x", "Binarize"},
		strategyNamesFromCalls(p, len(dec.calls)))

	// Only the fourth call sees the doubled raster.
	for i, r := range dec.calls {
		if i == 3 {
			assert.Equal(t, image.Rect(0, 0, 40, 20), r)
		} else {
			assert.Equal(t, image.Rect(0, 0, 20, 10), r)
		}
	}
}

func TestPipeline_IdentifiesStrategiesByRaster(t *testing.T) {
	// A decoder that only accepts the inverted raster proves the third call
	// really is Invert and not a cumulative transform.
	src := testutil.GradientImage(8, 8)
	inverted := Invert(src)

	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(_ int, img image.Image) (string, error) {
		if n, ok := img.(*image.NRGBA); ok && testutil.SameNRGBA(n, inverted) {
			return "inverted", nil
		}
		return "", errNoCode
	}}

	res, err := p.Decode(context.Background(), src, dec.decode)
	require.NoError(t, err)
	assert.Equal(t, StrategyInvert, res.Strategy)
	assert.Equal(t, 3, res.Attempts)
}

func TestPipeline_PassesQRHints(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(int, image.Image) (string, error) { return "", errNoCode }}

	_, _ = p.Decode(context.Background(), testutil.GradientImage(4, 4), dec.decode)
	require.NotEmpty(t, dec.hints)
	for _, h := range dec.hints {
		assert.True(t, h.TryHarder)
		assert.Equal(t, []barcode.Format{barcode.FormatQR}, h.Formats)
	}
}

func TestPipeline_EmptyTextAndPanicsAreStrategyFailures(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(call int, _ image.Image) (string, error) {
		switch call {
		case 1:
			return "", nil
		case 2:
			panic("decoder blew up")
		case 3:
			return "", errNoCode
		default:
			return "late", nil
		}
	}}

	res, err := p.Decode(context.Background(), testutil.GradientImage(6, 6), dec.decode)
	require.NoError(t, err)
	assert.Equal(t, "late", res.Text)
	assert.Equal(t, StrategyScale2x, res.Strategy)
}

func TestPipeline_ZeroSizeSourceExhausts(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(int, image.Image) (string, error) { return "never", nil }}

	_, err := p.Decode(context.Background(), &image.NRGBA{}, dec.decode)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Empty(t, dec.calls)
}

func TestPipeline_SourceUntouched(t *testing.T) {
	src := testutil.GradientImage(12, 9)
	orig := testutil.GradientImage(12, 9)
	p := New(DefaultConfig(), nil)
	dec := &recordingDecoder{answer: func(_ int, img image.Image) (string, error) {
		// Scribble on whatever we are handed.
		if n, ok := img.(*image.NRGBA); ok {
			for i := range n.Pix {
				n.Pix[i] = 1
			}
		}
		return "", errNoCode
	}}

	_, err := p.Decode(context.Background(), src, dec.decode)
	require.ErrorIs(t, err, ErrExhausted)
	assert.True(t, testutil.SameNRGBA(orig, src))
}

func TestPipeline_CustomStrategies(t *testing.T) {
	strategies, _ := StrategiesByName([]string{StrategyBinarize})
	p := New(Config{Strategies: strategies}, nil)
	dec := &recordingDecoder{answer: func(int, image.Image) (string, error) { return "", errNoCode }}

	_, err := p.Decode(context.Background(), testutil.GradientImage(3, 3), dec.decode)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, dec.calls, 1)
}

func TestPipeline_ConcurrentUse(t *testing.T) {
	p := New(DefaultConfig(), nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dec := &recordingDecoder{answer: func(call int, _ image.Image) (string, error) {
				if call == 5 {
					return "ok", nil
				}
				return "", errNoCode
			}}
			res, err := p.Decode(context.Background(), testutil.GradientImage(5+i, 5), dec.decode)
			assert.NoError(t, err)
			assert.Equal(t, StrategyBinarize, res.Strategy)
		}(i)
	}
	wg.Wait()
}

func TestPipeline_DecodeImageRequiresBackend(t *testing.T) {
	p := New(DefaultConfig(), nil)
	_, err := p.DecodeImage(context.Background(), testutil.GradientImage(2, 2))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestPipeline_WithGozxing(t *testing.T) {
	p := New(DefaultConfig(), barcode.NewBackend())
	ctx := context.Background()

	t.Run("plain code decodes on first strategy", func(t *testing.T) {
		res, err := p.DecodeImage(ctx, testutil.MustQR(t, "https://example.com/a", 256))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", res.Text)
		assert.Equal(t, StrategyNormal, res.Strategy)
	})

	t.Run("inverted code needs a fallback", func(t *testing.T) {
		res, err := p.DecodeImage(ctx, testutil.InvertedQR(t, "WIFI:S:home;T:WPA;P:secret;;", 256))
		require.NoError(t, err)
		assert.Equal(t, "WIFI:S:home;T:WPA;P:secret;;", res.Text)
		assert.NotEqual(t, StrategyNormal, res.Strategy)
	})

	t.Run("blank image exhausts", func(t *testing.T) {
		_, err := p.DecodeImage(ctx, testutil.GradientImage(64, 64))
		assert.ErrorIs(t, err, ErrExhausted)
	})
}
