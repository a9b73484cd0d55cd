package pipeline

import (
	"image"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/plate"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// Lookup outcomes reported in PlateResult.LookupStatus.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupSkipped  = "skipped"
)

// NotFoundMessage is shown to users for plates missing from the database.
const NotFoundMessage = "license plate not found"

// Input is one frame submitted for processing.
type Input struct {
	ID    string
	Image image.Image
}

// PlateResult is the outcome of processing a single frame. Geometry is in
// the coordinates of the submitted image, not the resized working frame.
type PlateResult struct {
	ImageID string `json:"image_id,omitempty"`
	Source  string `json:"source,omitempty"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`

	Found          bool          `json:"found"`
	Candidates     int           `json:"candidates"`
	CandidateIndex int           `json:"candidate_index"`
	Box            *utils.Box    `json:"box,omitempty"`
	AspectRatio    float64       `json:"aspect_ratio,omitempty"`
	Polygon        []utils.Point `json:"polygon,omitempty"`

	RawText      string         `json:"raw_text,omitempty"`
	Plate        string         `json:"plate,omitempty"`
	LookupStatus string         `json:"lookup_status,omitempty"`
	Vehicle      *lookup.Record `json:"vehicle,omitempty"`

	Processing struct {
		LocalizeMs  float64 `json:"localize_ms"`
		RecognizeMs float64 `json:"recognize_ms"`
		LookupMs    float64 `json:"lookup_ms"`
		TotalMs     float64 `json:"total_ms"`
	} `json:"processing"`

	localization plate.LocalizationResult
}

// Localization returns the raw selector output in working frame coordinates.
func (r *PlateResult) Localization() plate.LocalizationResult { return r.localization }
