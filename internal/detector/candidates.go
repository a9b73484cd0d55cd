package detector

import "sort"

// DefaultKeep is the number of largest contours kept as candidates.
const DefaultKeep = 5

// CandidateSet is a list of contours ranked by non-increasing area and holding
// at most the configured number of entries. Ties keep discovery order.
type CandidateSet []Contour

// Rank sorts contours by descending area (stable) and keeps the first keep.
// The input slice is left untouched. A negative keep is treated as zero.
func Rank(contours []Contour, keep int) CandidateSet {
	ranked := make(CandidateSet, len(contours))
	copy(ranked, contours)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Area() > ranked[j].Area()
	})
	keep = max(keep, 0)
	if len(ranked) > keep {
		ranked = ranked[:keep:keep]
	}
	return ranked
}

// Areas returns the area of each candidate in order.
func (cs CandidateSet) Areas() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Area()
	}
	return out
}
