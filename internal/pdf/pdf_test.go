package pdf

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/MeKo-Tech/qrlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty range returns nil", pageRange: "", want: nil},
		{name: "blank range returns nil", pageRange: "  ", want: nil},
		{name: "single page", pageRange: "1", want: []int{1}},
		{name: "multiple single pages", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "simple range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed pages and ranges", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "range with spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "invalid page number", pageRange: "abc", expectError: true},
		{name: "zero page", pageRange: "0", expectError: true},
		{name: "invalid range format", pageRange: "1-2-3", expectError: true},
		{name: "start greater than end", pageRange: "5-1", expectError: true},
		{name: "invalid start page", pageRange: "abc-5", expectError: true},
		{name: "invalid end page", pageRange: "1-xyz", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.True(t, IsPasswordError(ErrPasswordRequired))
	assert.True(t, IsPasswordError(errors.New("pdfcpu: please provide the correct password")))
	assert.True(t, IsPasswordError(errors.New("file is Encrypted")))
	assert.False(t, IsPasswordError(errors.New("xref table corrupt")))
}

func TestConfiguration(t *testing.T) {
	conf := configuration(&Credentials{UserPassword: "u", OwnerPassword: "o"})
	assert.Equal(t, "u", conf.UserPW)
	assert.Equal(t, "o", conf.OwnerPW)
	assert.NotNil(t, configuration(nil))
}

func TestExtractImages_ErrorCases(t *testing.T) {
	ctx := context.Background()

	t.Run("non-existent file", func(t *testing.T) {
		_, err := ExtractImagesFile(ctx, "/non/existent/file.pdf", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract images from PDF")
	})

	t.Run("invalid page range", func(t *testing.T) {
		_, err := ExtractImages(ctx, strings.NewReader("%PDF-1.4"), "invalid-range", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, err := ExtractImages(ctx, strings.NewReader("hello"), "", nil)
		require.Error(t, err)
	})
}

func TestExtractImagesFile_FromImportedImages(t *testing.T) {
	path := testutil.WriteQRPDF(t, "page one", "page two")

	images, err := ExtractImagesFile(context.Background(), path, "", nil)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 1, images[0].Page)
	assert.Equal(t, 2, images[1].Page)
	assert.Equal(t, 0, images[1].Index)

	only2, err := ExtractImagesFile(context.Background(), path, "2", nil)
	require.NoError(t, err)
	require.Len(t, only2, 1)
	assert.Equal(t, 2, only2[0].Page)
}

func TestExtractImages_Canceled(t *testing.T) {
	path := testutil.WriteQRPDF(t, "x")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ExtractImages(ctx, f, "", nil)
	assert.Error(t, err)
}
