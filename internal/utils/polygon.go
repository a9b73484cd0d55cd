package utils

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of pts with the monotone chain
// algorithm. The hull is returned counter-clockwise without repeating the
// first point.
func ConvexHull(pts []Point) []Point {
	p := append([]Point(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	p = dedupeSorted(p)
	if len(p) <= 2 {
		return p
	}

	hull := make([]Point, 0, 2*len(p))
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p[i]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p[i])
	}
	return hull[:len(hull)-1]
}

func dedupeSorted(p []Point) []Point {
	if len(p) == 0 {
		return p
	}
	out := p[:1]
	for _, pt := range p[1:] {
		if last := out[len(out)-1]; pt.X != last.X || pt.Y != last.Y {
			out = append(out, pt)
		}
	}
	return out
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinimumAreaRectangle returns the four corners of the smallest rotated
// rectangle enclosing pts, found with rotating calipers over the hull.
// Degenerate inputs (one or two distinct points) yield a thin rectangle.
func MinimumAreaRectangle(pts []Point) []Point {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return nil
	case 1:
		p := hull[0]
		return []Point{p, {p.X + 1, p.Y}, {p.X + 1, p.Y + 1}, {p.X, p.Y + 1}}
	case 2:
		a, b := hull[0], hull[1]
		return []Point{a, b, {b.X, b.Y + 1}, {a.X, a.Y + 1}}
	}

	bestArea := math.Inf(1)
	var best [4]Point
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		if l == 0 {
			continue
		}
		u := Point{(b.X - a.X) / l, (b.Y - a.Y) / l}
		v := Point{-u.Y, u.X}

		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*u.X + p.Y*u.Y
			t := p.X*v.X + p.Y*v.Y
			minS, maxS = math.Min(minS, s), math.Max(maxS, s)
			minT, maxT = math.Min(minT, t), math.Max(maxT, t)
		}
		if area := (maxS - minS) * (maxT - minT); area < bestArea {
			bestArea = area
			corner := func(s, t float64) Point {
				return Point{X: u.X*s + v.X*t, Y: u.Y*s + v.Y*t}
			}
			best = [4]Point{corner(minS, minT), corner(maxS, minT), corner(maxS, maxT), corner(minS, maxT)}
		}
	}
	return best[:]
}
