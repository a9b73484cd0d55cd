package utils

import (
	"image"
	"image/color"
)

// ToGray converts img to a single-channel intensity image anchored at (0,0).
// Gray inputs are copied; color inputs use ITU-R 601 luma weights.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[off:off+b.Dx()])
		}
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				i := off + 4*x
				row[x] = luma(uint32(src.Pix[i]), uint32(src.Pix[i+1]), uint32(src.Pix[i+2]))
			}
		}
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				i := off + 4*x
				row[x] = luma(uint32(src.Pix[i]), uint32(src.Pix[i+1]), uint32(src.Pix[i+2]))
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out.Pix[y*out.Stride+x] = g.Y
			}
		}
	}
	return out
}

// luma matches color.GrayModel rounding for 8-bit channels.
func luma(r, g, b uint32) uint8 {
	r |= r << 8
	g |= g << 8
	b |= b << 8
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
	return uint8(y) //nolint:gosec // G115: y is at most 255
}

// NewGrayFilled allocates a w x h gray image with every pixel set to v.
func NewGrayFilled(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	if v != 0 {
		for i := range img.Pix {
			img.Pix[i] = v
		}
	}
	return img
}
