package plate

import (
	"image"

	"github.com/MeKo-Tech/platefinder/internal/detector"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// ClearBorder returns a copy of the binary roi with every 8-connected
// foreground component that touches the image edge removed. Frame edges and
// mounting screws usually survive thresholding this way. roi is not modified.
func ClearBorder(roi *image.Gray) *image.Gray {
	out := utils.ToGray(roi)
	comps := detector.LabelComponents(out, detector.Connect8)
	w := comps.Width
	for i, label := range comps.Labels {
		if label != 0 && comps.TouchesBorder(label) {
			out.Pix[(i/w)*out.Stride+i%w] = 0
		}
	}
	return out
}
