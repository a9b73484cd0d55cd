package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned pixel box. Width and height count pixels inclusively,
// so a single pixel has W == H == 1.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NewBox constructs a Box from two inclusive corner pixels in any order.
func NewBox(x1, y1, x2, y2 int) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{X: x1, Y: y1, W: x2 - x1 + 1, H: y2 - y1 + 1}
}

// AspectRatio returns W/H, and false when the height is zero.
func (b Box) AspectRatio() (float64, bool) {
	if b.H == 0 {
		return 0, false
	}
	return float64(b.W) / float64(b.H), true
}

// Area returns the number of pixels covered by the box.
func (b Box) Area() int { return b.W * b.H }

// ToRect converts the box to an image.Rectangle clamped to bounds.
func (b Box) ToRect(bounds image.Rectangle) image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H).Intersect(bounds)
}

// BoundingBox returns the integer box enclosing pts.
func BoundingBox(pts []image.Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return NewBox(minX, minY, maxX, maxY)
}

// CropGray copies the region r of src into a new gray image anchored at (0,0).
func CropGray(src *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(src.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := src.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], src.Pix[srcOff:srcOff+r.Dx()])
	}
	return out
}

// ToRGBA returns a drawable copy of img.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	ip := make([]image.Point, len(pts))
	for i, p := range pts {
		ip[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	for i := range ip {
		drawLine(dst, ip[i], ip[(i+1)%len(ip)], col, thickness)
	}
}

// DrawLabel writes text with its baseline at (x, y) using the 7x13 bitmap face.
// The label is clamped so it stays inside dst.
func DrawLabel(dst *image.RGBA, x, y int, text string, col color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	b := dst.Bounds()
	x = max(b.Min.X, min(x, b.Max.X-width))
	y = max(b.Min.Y+height, min(y, b.Max.Y-1))
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawLine draws a line between two points using a simple Bresenham variant.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	r := (max(thickness, 1) - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
