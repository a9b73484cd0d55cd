package plate

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/platefinder/internal/detector"
)

var colorOn = color.Gray{Y: 255}

// rectContour returns the four-corner contour of an inclusive w x h box at (x, y).
func rectContour(x, y, w, h int) detector.Contour {
	return detector.NewContour([]image.Point{
		{x, y}, {x + w - 1, y}, {x + w - 1, y + h - 1}, {x, y + h - 1},
	})
}
