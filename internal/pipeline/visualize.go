package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/disintegration/imaging"
)

// PlateColor is the overlay color of the selected region.
var PlateColor = color.RGBA{G: 255, A: 255}

// RenderOverlay returns an RGBA copy of img with the rotated rectangle of the
// selected region drawn in col and the recognized text written above it.
func RenderOverlay(img image.Image, res *PlateResult, col color.Color) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)
	if res == nil || !res.Found {
		return dst
	}
	if len(res.Polygon) >= 2 {
		utils.DrawPolygon(dst, res.Polygon, col, 2)
	} else if res.Box != nil {
		utils.DrawRect(dst, res.Box.ToRect(dst.Bounds()), col, 2)
	}
	if label := overlayLabel(res); label != "" && res.Box != nil {
		utils.DrawLabel(dst, res.Box.X, res.Box.Y-5, label, col)
	}
	return dst
}

func overlayLabel(res *PlateResult) string {
	if res.Plate != "" {
		return res.Plate
	}
	return ocr.CleanupText(res.RawText)
}

// SaveOverlay renders the overlay and writes it to path. The encoder follows
// the file extension.
func SaveOverlay(path string, img image.Image, res *PlateResult) error {
	out := RenderOverlay(img, res, PlateColor)
	if out == nil {
		return fmt.Errorf("render overlay for %s: nil image", path)
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("save overlay %s: %w", path, err)
	}
	return nil
}
