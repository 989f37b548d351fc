// Package pdf extracts embedded images from PDF documents and scans them
// for QR codes.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/qrlens/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPageRange is returned for malformed page selections.
var ErrInvalidPageRange = errors.New("pdf: invalid page range")

// PageImage is one image extracted from a PDF page.
type PageImage struct {
	Page  int
	Index int
	Name  string
	Image image.Image
}

// ExtractImagesFile extracts all embedded images from a PDF file.
func ExtractImagesFile(ctx context.Context, filename, pageRange string, creds *Credentials) ([]PageImage, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: Reading user-provided PDF file path is expected
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ExtractImages(ctx, f, pageRange, creds)
}

// ExtractImages extracts embedded images from a PDF stream, ordered by page
// and then by position on the page. Images that cannot be decoded are
// skipped.
func ExtractImages(ctx context.Context, rs io.ReadSeeker, pageRange string, creds *Credentials) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPageRange, pageRange, err)
	}

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	var out []PageImage
	perPage := make(map[int]int)
	collect := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if img.Reader == nil {
			return nil
		}
		decoded, _, err := utils.DecodeImage(img)
		if err != nil {
			// Masks, JBIG2 and other streams the image package cannot read.
			return nil
		}
		out = append(out, PageImage{
			Page:  img.PageNr,
			Index: perPage[img.PageNr],
			Name:  img.Name,
			Image: decoded,
		})
		perPage[img.PageNr]++
		return nil
	}

	if err := api.ExtractImages(rs, pageStrings, collect, configuration(creds)); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPasswordRequired, err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := parsePageNumber(rangeParts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := parsePageNumber(rangeParts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := parsePageNumber(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d out of range", n)
	}
	return n, nil
}
