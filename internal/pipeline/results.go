package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ToJSONResult serializes a single result to pretty JSON.
func ToJSONResult(res *PlateResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes multiple results to pretty JSON.
func ToJSONResults(results []*PlateResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText renders a human readable summary of res.
func ToPlainText(res *PlateResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	if res.Source != "" {
		fmt.Fprintf(&sb, "%s: ", res.Source)
	}
	if !res.Found {
		sb.WriteString("no plate detected")
		return sb.String(), nil
	}
	b := res.Box
	fmt.Fprintf(&sb, "plate region (%d,%d %dx%d) aspect %.2f", b.X, b.Y, b.W, b.H, res.AspectRatio)
	if res.Plate != "" {
		fmt.Fprintf(&sb, "\n  text: %s", res.Plate)
	}
	switch res.LookupStatus {
	case LookupFound:
		v := res.Vehicle
		fmt.Fprintf(&sb, "\n  vehicle: %d %s %s\n  owner: %s", v.Year, v.Make, v.Model, v.Owner)
	case LookupNotFound:
		fmt.Fprintf(&sb, "\n  %s", NotFoundMessage)
	}
	return sb.String(), nil
}

// ToPlainTextResults joins the summaries of several results.
func ToPlainTextResults(results []*PlateResult) (string, error) {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		s, err := ToPlainText(r)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}

var csvHeader = []string{
	"source", "found", "x", "y", "w", "h", "aspect_ratio",
	"plate", "lookup", "make", "model", "year", "owner",
}

// ToCSV exports one row per result with a header.
func ToCSV(results []*PlateResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		row := make([]string, len(csvHeader))
		row[0] = r.Source
		if row[0] == "" {
			row[0] = r.ImageID
		}
		row[1] = strconv.FormatBool(r.Found)
		if r.Box != nil {
			row[2] = strconv.Itoa(r.Box.X)
			row[3] = strconv.Itoa(r.Box.Y)
			row[4] = strconv.Itoa(r.Box.W)
			row[5] = strconv.Itoa(r.Box.H)
			row[6] = fmt.Sprintf("%.3f", r.AspectRatio)
		}
		row[7] = r.Plate
		row[8] = r.LookupStatus
		if v := r.Vehicle; v != nil {
			row[9], row[10], row[11], row[12] = v.Make, v.Model, strconv.Itoa(v.Year), v.Owner
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// Format renders results as "json", "csv" or "text".
func Format(results []*PlateResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		if len(results) == 1 {
			return ToJSONResult(results[0])
		}
		return ToJSONResults(results)
	case "csv":
		return ToCSV(results)
	case "text", "":
		return ToPlainTextResults(results)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// ValidatePlateResult performs simple consistency checks.
func ValidatePlateResult(res *PlateResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	if res.Found != (res.Box != nil) {
		return errors.New("box must be present exactly when a plate was found")
	}
	if !res.Found {
		if res.Plate != "" || res.Vehicle != nil {
			return errors.New("text or vehicle without a plate region")
		}
		return nil
	}
	b := res.Box
	if b.W <= 0 || b.H <= 0 || b.X < 0 || b.Y < 0 {
		return fmt.Errorf("invalid box %+v", *b)
	}
	if b.X+b.W > res.Width || b.Y+b.H > res.Height {
		return fmt.Errorf("box %+v exceeds image %dx%d", *b, res.Width, res.Height)
	}
	if (res.LookupStatus == LookupFound) != (res.Vehicle != nil) {
		return errors.New("vehicle must be present exactly when lookup succeeded")
	}
	return nil
}
