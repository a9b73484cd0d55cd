package detector

import (
	"container/list"
	"image"

	"github.com/MeKo-Tech/platefinder/internal/mempool"
)

// Connectivity selects the pixel neighbourhood used for labelling.
type Connectivity int

const (
	Connect4 Connectivity = 4
	Connect8 Connectivity = 8
)

var (
	dirs4 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	dirs8 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

func (c Connectivity) dirs() [][2]int {
	if c == Connect4 {
		return dirs4
	}
	return dirs8
}

// compStats represents statistics for a connected component.
type compStats struct {
	label         int
	count         int
	minX, minY    int
	maxX, maxY    int
	touchesBorder bool
	// external is false when the component sits inside a hole of another one.
	external bool
}

// Components is the result of labelling a binary mask.
type Components struct {
	Width, Height int
	// Labels holds 0 for background and 1..N for foreground pixels, row-major.
	Labels []int
	stats  []compStats
}

// Count returns the number of components found.
func (c *Components) Count() int { return len(c.stats) }

// TouchesBorder reports whether component label has a pixel on the image edge.
func (c *Components) TouchesBorder(label int) bool {
	return label >= 1 && label <= len(c.stats) && c.stats[label-1].touchesBorder
}

// Size returns the pixel count of component label.
func (c *Components) Size(label int) int {
	if label < 1 || label > len(c.stats) {
		return 0
	}
	return c.stats[label-1].count
}

// LabelComponents labels the non-zero pixels of mask. Labels are assigned in
// raster order of each component's first pixel.
func LabelComponents(mask *image.Gray, conn Connectivity) *Components {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	fg := mempool.GetBool(w * h)
	defer mempool.PutBool(fg)
	for y := range h {
		for x, v := range mask.Pix[y*mask.Stride : y*mask.Stride+w] {
			fg[y*w+x] = v != 0
		}
	}

	labels := make([]int, w*h)
	var comps []compStats
	label := 1
	for y := range h {
		for x := range w {
			idx := y*w + x
			if fg[idx] && labels[idx] == 0 {
				comps = append(comps, performComponentBFS(fg, labels, w, h, x, y, label, conn.dirs()))
				label++
			}
		}
	}

	c := &Components{Width: w, Height: h, Labels: labels, stats: comps}
	c.markExternal(fg)
	return c
}

// performComponentBFS performs BFS traversal for a connected component starting from a seed pixel.
func performComponentBFS(fg []bool, labels []int, w, h, startX, startY, label int, dirs [][2]int) compStats {
	startIdx := startY*w + startX
	st := compStats{label: label, minX: startX, minY: startY, maxX: startX, maxY: startY}
	q := list.New()
	q.PushBack(startIdx)
	labels[startIdx] = label

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		cx, cy := ci%w, ci/w
		updateComponentStats(&st, cx, cy, w, h)
		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if fg[ni] && labels[ni] == 0 {
				labels[ni] = label
				q.PushBack(ni)
			}
		}
	}
	return st
}

// updateComponentStats updates the component statistics with a new pixel.
func updateComponentStats(st *compStats, cx, cy, w, h int) {
	st.count++
	st.minX = min(st.minX, cx)
	st.minY = min(st.minY, cy)
	st.maxX = max(st.maxX, cx)
	st.maxY = max(st.maxY, cy)
	if cx == 0 || cy == 0 || cx == w-1 || cy == h-1 {
		st.touchesBorder = true
	}
}

// markExternal flags components reachable from the outside background. The
// background is flooded 4-connected from the image edge, the dual of 8-connected
// foreground, so a component whose every neighbour lies in an enclosed hole
// stays internal.
func (c *Components) markExternal(fg []bool) {
	w, h := c.Width, c.Height
	outside := mempool.GetBool(w * h)
	defer mempool.PutBool(outside)
	q := list.New()
	seed := func(x, y int) {
		i := y*w + x
		if !fg[i] && !outside[i] {
			outside[i] = true
			q.PushBack(i)
		}
	}
	for x := range w {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := range h {
		seed(0, y)
		seed(w-1, y)
	}
	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, _ := e.Value.(int)
		cx, cy := ci%w, ci/w
		for _, d := range dirs4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx >= 0 && nx < w && ny >= 0 && ny < h {
				seed(nx, ny)
			}
		}
	}

	for i := range c.stats {
		if c.stats[i].touchesBorder {
			c.stats[i].external = true
		}
	}
	for y := range h {
		for x := range w {
			l := c.Labels[y*w+x]
			if l == 0 || c.stats[l-1].external {
				continue
			}
			for _, d := range dirs4 {
				nx, ny := x+d[0], y+d[1]
				if nx >= 0 && nx < w && ny >= 0 && ny < h && outside[ny*w+nx] {
					c.stats[l-1].external = true
					break
				}
			}
		}
	}
}
