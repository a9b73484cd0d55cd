// Package plate picks the plate region among ranked detector candidates and
// turns it into a binary region of interest for text recognition.
package plate

import (
	"encoding/json"
	"image"

	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// LocalizationResult is either a binarized ROI together with the contour it
// was cut from, or nothing. The two are never set independently.
type LocalizationResult struct {
	roi     *image.Gray
	contour detector.Contour
	index   int
	found   bool
}

// NewLocalization pairs roi with its source contour. A nil roi yields the
// absent result.
func NewLocalization(roi *image.Gray, contour detector.Contour, candidateIndex int) LocalizationResult {
	if roi == nil {
		return NotFound()
	}
	return LocalizationResult{roi: roi, contour: contour, index: candidateIndex, found: true}
}

// NotFound is the empty outcome: no candidate had a plate-like shape.
func NotFound() LocalizationResult { return LocalizationResult{index: -1} }

// Found reports whether a plate region was selected.
func (r LocalizationResult) Found() bool { return r.found }

// ROI returns the binarized region, or nil when nothing was found.
func (r LocalizationResult) ROI() *image.Gray { return r.roi }

// Contour returns the selected contour and whether there is one.
func (r LocalizationResult) Contour() (detector.Contour, bool) { return r.contour, r.found }

// BoundingBox returns the selected contour's box, or the zero box.
func (r LocalizationResult) BoundingBox() utils.Box {
	if !r.found {
		return utils.Box{}
	}
	return r.contour.BoundingBox()
}

// CandidateIndex is the position of the winning contour in the candidate
// set, or -1.
func (r LocalizationResult) CandidateIndex() int { return r.index }

type resultJSON struct {
	Found          bool              `json:"found"`
	CandidateIndex int               `json:"candidate_index"`
	Box            *utils.Box        `json:"box,omitempty"`
	AspectRatio    float64           `json:"aspect_ratio,omitempty"`
	Contour        *detector.Contour `json:"contour,omitempty"`
}

// MarshalJSON implements json.Marshaler. The ROI pixels are not serialized.
func (r LocalizationResult) MarshalJSON() ([]byte, error) {
	out := resultJSON{Found: r.found, CandidateIndex: r.index}
	if r.found {
		box := r.contour.BoundingBox()
		c := r.contour
		out.Box = &box
		out.Contour = &c
		out.AspectRatio, _ = box.AspectRatio()
	}
	return json.Marshal(out)
}
