package pdf

import "github.com/MeKo-Tech/qrlens/internal/payload"

// CodeResult is the scan outcome for a single extracted image.
type CodeResult struct {
	Page       int              `json:"page"`
	ImageIndex int              `json:"image_index"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Found      bool             `json:"found"`
	Text       string           `json:"text,omitempty"`
	Strategy   string           `json:"strategy,omitempty"`
	Attempts   int              `json:"attempts"`
	Payload    *payload.Payload `json:"payload,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// PageResult groups the image results of one page.
type PageResult struct {
	PageNumber int          `json:"page_number"`
	Images     []CodeResult `json:"images"`
}

// DocumentResult represents complete scan results for a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing and performance information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	ScanTimeMs       int64 `json:"scan_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// Codes returns every successful decode in page order.
func (d *DocumentResult) Codes() []CodeResult {
	var out []CodeResult
	for _, p := range d.Pages {
		for _, img := range p.Images {
			if img.Found {
				out = append(out, img)
			}
		}
	}
	return out
}
