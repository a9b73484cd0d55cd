package detector

import (
	"encoding/json"
	"image"
	"math"

	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// Contour is the ordered outer boundary of a connected region. Collinear
// boundary pixels are dropped so straight runs keep only their end points.
// Area and bounding box are computed once at construction.
type Contour struct {
	points []image.Point
	area   float64
	box    utils.Box
}

// NewContour builds a contour from boundary points. The slice is copied.
func NewContour(pts []image.Point) Contour {
	cp := append([]image.Point(nil), pts...)
	return Contour{points: cp, area: shoelaceArea(cp), box: utils.BoundingBox(cp)}
}

// Points returns a copy of the boundary points.
func (c Contour) Points() []image.Point { return append([]image.Point(nil), c.points...) }

// Len returns the number of boundary points.
func (c Contour) Len() int { return len(c.points) }

// Area returns the polygon area enclosed by the boundary points.
func (c Contour) Area() float64 { return c.area }

// BoundingBox returns the inclusive axis-aligned box of the contour.
func (c Contour) BoundingBox() utils.Box { return c.box }

// MinAreaRect returns the corners of the minimum-area rotated rectangle.
func (c Contour) MinAreaRect() []utils.Point {
	pts := make([]utils.Point, len(c.points))
	for i, p := range c.points {
		pts[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return utils.MinimumAreaRectangle(pts)
}

// Translate returns the contour shifted by d.
func (c Contour) Translate(d image.Point) Contour {
	pts := make([]image.Point, len(c.points))
	for i, p := range c.points {
		pts[i] = p.Add(d)
	}
	return NewContour(pts)
}

// Scale returns the contour with coordinates multiplied by sx, sy and rounded.
func (c Contour) Scale(sx, sy float64) Contour {
	pts := make([]image.Point, len(c.points))
	for i, p := range c.points {
		pts[i] = image.Pt(int(math.Round(float64(p.X)*sx)), int(math.Round(float64(p.Y)*sy)))
	}
	return NewContour(pts)
}

type contourJSON struct {
	Points []image.Point `json:"points"`
	Area   float64       `json:"area"`
	Box    utils.Box     `json:"box"`
}

// MarshalJSON implements json.Marshaler.
func (c Contour) MarshalJSON() ([]byte, error) {
	return json.Marshal(contourJSON{Points: c.points, Area: c.area, Box: c.box})
}

// UnmarshalJSON implements json.Unmarshaler. Area and box are recomputed.
func (c *Contour) UnmarshalJSON(data []byte) error {
	var raw contourJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewContour(raw.Points)
	return nil
}

// shoelaceArea returns the absolute polygon area of pts.
func shoelaceArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var s int
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		s += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(s)) / 2
}

// ExternalContours traces the outer boundary of every top-level foreground
// region in mask. Regions nested inside a hole of another region are skipped.
// Contours are returned in raster order of their first pixel.
func ExternalContours(mask *image.Gray) []Contour {
	comps := LabelComponents(mask, Connect8)
	out := make([]Contour, 0, comps.Count())
	for _, st := range comps.stats {
		if !st.external {
			continue
		}
		pts := traceContourMoore(comps.Labels, comps.Width, comps.Height, st)
		out = append(out, NewContour(pts))
	}
	return out
}

// traceContourMoore extracts the boundary of one labelled component using
// Moore-neighbour tracing, starting at its top-left pixel.
func traceContourMoore(labels []int, w, h int, st compStats) []image.Point {
	sx, sy := findStartingPixel(labels, w, st)
	if sx == -1 {
		return nil
	}

	pts := make([]image.Point, 0, 64)
	addPoint := func(p image.Point) {
		n := len(pts)
		if n > 0 && pts[n-1] == p {
			return
		}
		if n >= 2 {
			a, b := pts[n-2], pts[n-1]
			if (b.X-a.X)*(p.Y-b.Y)-(b.Y-a.Y)*(p.X-b.X) == 0 && sameDirection(a, b, p) {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}

	start := image.Pt(sx, sy)
	cur, back := start, image.Pt(sx-1, sy)
	addPoint(cur)

	// Stop once the walk leaves the start pixel the same way it did first.
	var second image.Point
	maxSteps := 4*w*h + 8
	for step := range maxSteps {
		next, nb, found := findNextBoundaryPixel(labels, w, h, st.label, cur, back)
		if !found {
			break
		}
		if step == 0 {
			second = next
		} else if cur == start && next == second {
			break
		}
		cur, back = next, nb
		addPoint(cur)
	}

	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) >= 3 {
		a, b, p := pts[len(pts)-2], pts[len(pts)-1], pts[0]
		if (b.X-a.X)*(p.Y-b.Y)-(b.Y-a.Y)*(p.X-b.X) == 0 && sameDirection(a, b, p) {
			pts = pts[:len(pts)-1]
		}
	}
	return pts
}

// sameDirection reports whether a->b and b->p point the same way, so b is a
// redundant middle point and not a spike tip.
func sameDirection(a, b, p image.Point) bool {
	return (b.X-a.X)*(p.X-b.X)+(b.Y-a.Y)*(p.Y-b.Y) > 0
}

// findStartingPixel returns the first pixel of the component in raster order.
func findStartingPixel(labels []int, w int, st compStats) (int, int) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if labels[y*w+x] == st.label {
				return x, y
			}
		}
	}
	return -1, -1
}

// 8-neighbourhood in clockwise order (image coordinates): E, SE, S, SW, W, NW, N, NE.
var (
	ndx = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func dirIndex(dx, dy int) int {
	for i := range 8 {
		if ndx[i] == dx && ndy[i] == dy {
			return i
		}
	}
	return 0
}

// findNextBoundaryPixel scans the Moore neighbourhood of cur clockwise,
// starting just after the backtrack pixel, and returns the first pixel of
// the label along with the new backtrack.
func findNextBoundaryPixel(labels []int, w, h, label int, cur, back image.Point) (image.Point, image.Point, bool) {
	isLabel := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == label
	}
	start := (dirIndex(back.X-cur.X, back.Y-cur.Y) + 1) % 8
	prev := back
	for k := range 8 {
		i := (start + k) % 8
		t := image.Pt(cur.X+ndx[i], cur.Y+ndy[i])
		if isLabel(t.X, t.Y) {
			return t, prev, true
		}
		prev = t
	}
	return image.Point{}, back, false
}
