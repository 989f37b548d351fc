package pdf

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/testutil"
	"github.com/MeKo-Tech/qrlens/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(workers int) *Processor {
	return NewProcessor(scan.New(scan.DefaultConfig(), barcode.NewBackend()), &ProcessorConfig{MaxWorkers: workers})
}

func TestProcessor_GroupsByPageInOrder(t *testing.T) {
	images := []PageImage{
		{Page: 1, Index: 0, Image: testutil.MustQR(t, "https://one.test", 200)},
		{Page: 1, Index: 1, Image: testutil.GradientImage(60, 60)},
		{Page: 3, Index: 0, Image: testutil.InvertedQR(t, "three", 200)},
	}

	for _, workers := range []int{1, 4} {
		doc, err := newTestProcessor(workers).process(context.Background(), "doc.pdf", images, time.Now())
		require.NoError(t, err)

		assert.Equal(t, "doc.pdf", doc.Filename)
		require.Equal(t, 2, doc.TotalPages)
		assert.Equal(t, 1, doc.Pages[0].PageNumber)
		assert.Equal(t, 3, doc.Pages[1].PageNumber)
		require.Len(t, doc.Pages[0].Images, 2)

		first := doc.Pages[0].Images[0]
		assert.True(t, first.Found)
		assert.Equal(t, "https://one.test", first.Text)
		require.NotNil(t, first.Payload)
		assert.Equal(t, payload.KindURL, first.Payload.Kind)

		miss := doc.Pages[0].Images[1]
		assert.False(t, miss.Found)
		assert.Equal(t, 5, miss.Attempts)
		assert.Empty(t, miss.Error)

		third := doc.Pages[1].Images[0]
		assert.True(t, third.Found)
		assert.NotEqual(t, scan.StrategyNormal, third.Strategy)

		codes := doc.Codes()
		require.Len(t, codes, 2)
		assert.Equal(t, "three", codes[1].Text)
	}
}

func TestProcessor_Empty(t *testing.T) {
	doc, err := newTestProcessor(0).process(context.Background(), "empty.pdf", nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, doc.TotalPages)
	assert.Empty(t, doc.Codes())
}

func TestProcessor_ProcessFile(t *testing.T) {
	path := testutil.WriteQRPDF(t, "WIFI:S:office;T:WPA;P:pw;;")
	doc, err := newTestProcessor(2).ProcessFile(context.Background(), path, "", nil)
	require.NoError(t, err)

	codes := doc.Codes()
	require.Len(t, codes, 1)
	assert.Equal(t, 1, codes[0].Page)
	assert.Equal(t, payload.KindWiFi, codes[0].Payload.Kind)
}

func TestProcessor_CodeResultDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	r := newTestProcessor(1).scanOne(context.Background(), PageImage{Page: 2, Index: 4, Image: img})
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, 4, r.ImageIndex)
	assert.Equal(t, 40, r.Width)
	assert.Equal(t, 30, r.Height)
	assert.False(t, r.Found)
}

func TestProcessor_AppliesImageConstraints(t *testing.T) {
	p := NewProcessor(scan.New(scan.DefaultConfig(), barcode.NewBackend()), &ProcessorConfig{
		MaxWorkers:  1,
		Constraints: utils.ImageConstraints{MaxWidth: 300, MaxHeight: 300, MinWidth: 21, MinHeight: 21},
	})

	icon := p.scanOne(context.Background(), PageImage{Page: 1, Image: testutil.GradientImage(12, 12)})
	assert.False(t, icon.Found)
	assert.Zero(t, icon.Attempts)
	assert.Contains(t, icon.Error, "too small")

	large := p.scanOne(context.Background(), PageImage{Page: 1, Index: 1, Image: testutil.MustQR(t, "scaled down", 900)})
	assert.True(t, large.Found)
	assert.Equal(t, "scaled down", large.Text)
	assert.Equal(t, 900, large.Width)
}

func TestNewProcessor_DefaultConstraints(t *testing.T) {
	p := newTestProcessor(1)
	assert.Equal(t, utils.DefaultImageConstraints(), p.config.Constraints)
}
