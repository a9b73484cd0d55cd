package pdf

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

// PageResult holds the plate results of the images embedded in one page.
type PageResult struct {
	PageNumber int                     `json:"page_number"`
	Images     []*pipeline.PlateResult `json:"images"`
	Processing ProcessingInfo          `json:"processing"`
}

// DocumentResult represents the plate results for a whole PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs   int64 `json:"extraction_time_ms"`
	LocalizationTimeMs int64 `json:"localization_time_ms"`
	TotalTimeMs        int64 `json:"total_time_ms"`
}

// Results flattens the per-page results in page order.
func (d *DocumentResult) Results() []*pipeline.PlateResult {
	var out []*pipeline.PlateResult
	for _, p := range d.Pages {
		out = append(out, p.Images...)
	}
	return out
}

// PlatesFound counts the images with a localized plate.
func (d *DocumentResult) PlatesFound() int {
	n := 0
	for _, r := range d.Results() {
		if r != nil && r.Found {
			n++
		}
	}
	return n
}

// Text renders the document as a plain text report, one block per page.
func (d *DocumentResult) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", d.Filename)
	fmt.Fprintf(&sb, "Total Pages: %d\n", d.TotalPages)
	fmt.Fprintf(&sb, "Plates Found: %d\n", d.PlatesFound())
	for _, page := range d.Pages {
		fmt.Fprintf(&sb, "\nPage %d:\n", page.PageNumber)
		for i, res := range page.Images {
			if res == nil {
				fmt.Fprintf(&sb, "  image %d: error\n", i+1)
				continue
			}
			line, err := pipeline.ToPlainText(res)
			if err != nil {
				continue
			}
			fmt.Fprintf(&sb, "  image %d: %s\n", i+1, strings.ReplaceAll(line, "\n", "\n  "))
		}
	}
	return sb.String()
}

// FormatDocuments renders docs as "json", "csv" or "text". CSV flattens the
// images of all documents into one table.
func FormatDocuments(docs []*DocumentResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		var v any = docs
		if len(docs) == 1 {
			v = docs[0]
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "csv":
		var all []*pipeline.PlateResult
		for _, d := range docs {
			all = append(all, d.Results()...)
		}
		return pipeline.ToCSV(all)
	case "text", "":
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			parts = append(parts, d.Text())
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}
