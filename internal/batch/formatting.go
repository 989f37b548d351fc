package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(results []ImageResult, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(results)
	case FormatCSV:
		return formatCSV(results)
	case FormatText, "":
		return formatText(results), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func formatJSON(results []ImageResult) (string, error) {
	out := struct {
		Images []ImageResult `json:"images"`
	}{Images: results}
	if out.Images == nil {
		out.Images = []ImageResult{}
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

func formatCSV(results []ImageResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"file", "found", "kind", "strategy", "attempts", "text", "error"}}
	for _, r := range results {
		kind := ""
		if r.Payload != nil {
			kind = string(r.Payload.Kind)
		}
		rows = append(rows, []string{
			r.File,
			strconv.FormatBool(r.Found),
			kind,
			r.Strategy,
			strconv.Itoa(r.Attempts),
			r.Text,
			r.Error,
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(results []ImageResult) string {
	var output strings.Builder
	for i, r := range results {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", r.File))
		switch {
		case r.Failed():
			output.WriteString(fmt.Sprintf("error: %s\n", r.Error))
		case r.Found:
			output.WriteString(r.Text)
			output.WriteString("\n")
		default:
			output.WriteString("(no QR code found)\n")
		}
	}
	return output.String()
}
