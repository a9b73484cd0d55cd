package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/pipeline"
)

type imageEntry struct {
	File   string                `json:"file"`
	Result *pipeline.PlateResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

type batchSummary struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Failed      int `json:"failed"`
	PlatesFound int `json:"plates_found"`
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(r)
	case "csv":
		return pipeline.ToCSV(r.Results)
	case "text", "":
		return formatText(r)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func failureFor(r *Result, path string) string {
	for _, f := range r.Failures {
		if f.Path == path {
			return f.Error
		}
	}
	return ""
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	out := struct {
		Images  []imageEntry `json:"images"`
		Summary batchSummary `json:"summary"`
	}{
		Images: make([]imageEntry, len(r.ImagePaths)),
		Summary: batchSummary{
			Total:       len(r.ImagePaths),
			Failed:      len(r.Failures),
			PlatesFound: r.PlatesFound(),
		},
	}

	for i, path := range r.ImagePaths {
		entry := imageEntry{File: path}
		if i < len(r.Results) && r.Results[i] != nil {
			entry.Result = r.Results[i]
			out.Summary.Processed++
		} else {
			entry.Error = failureFor(r, path)
		}
		out.Images[i] = entry
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatText formats results as plain text, one block per file.
func formatText(r *Result) (string, error) {
	var output strings.Builder
	for i, path := range r.ImagePaths {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", path))
		if i >= len(r.Results) || r.Results[i] == nil {
			output.WriteString(fmt.Sprintf("error: %s\n", failureFor(r, path)))
			continue
		}
		text, err := pipeline.ToPlainText(r.Results[i])
		if err != nil {
			return "", err
		}
		output.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			output.WriteString("\n")
		}
	}
	return output.String(), nil
}
