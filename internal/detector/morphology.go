package detector

import "image"

// StructuringElement is a rectangular morphology kernel anchored at its
// center. It is a value type and never changes after creation.
type StructuringElement struct {
	Width  int
	Height int
}

// Rect returns a width x height rectangular structuring element.
func Rect(width, height int) StructuringElement {
	return StructuringElement{Width: width, Height: height}
}

var (
	// PlateKernel is wider than tall, matching the shape of a character row.
	PlateKernel = Rect(13, 5)
	// SquareKernel is the small kernel used for light-region closing and
	// for noise erosion/dilation.
	SquareKernel = Rect(3, 3)
)

// Valid reports whether both dimensions are positive.
func (se StructuringElement) Valid() bool { return se.Width > 0 && se.Height > 0 }

func (se StructuringElement) anchor() (int, int) { return se.Width / 2, se.Height / 2 }

// MorphologicalOp represents the type of morphological operation to perform.
type MorphologicalOp int

const (
	MorphNone MorphologicalOp = iota
	MorphDilate
	MorphErode
	MorphOpening  // Erode then Dilate - removes small noise
	MorphClosing  // Dilate then Erode - fills gaps
	MorphBlackhat // Closing minus source - dark details smaller than the kernel
)

// String returns a short name for the operation.
func (op MorphologicalOp) String() string {
	switch op {
	case MorphDilate:
		return "dilate"
	case MorphErode:
		return "erode"
	case MorphOpening:
		return "open"
	case MorphClosing:
		return "close"
	case MorphBlackhat:
		return "blackhat"
	default:
		return "none"
	}
}

// MorphConfig holds configuration for morphological operations.
type MorphConfig struct {
	Operation  MorphologicalOp
	Kernel     StructuringElement
	Iterations int
}

// ApplyMorphologicalOperation applies the configured operation and returns a new image.
// Pixels outside the image never take part in a min or max, which matches
// the usual "border is neutral" convention for erosion and dilation.
func ApplyMorphologicalOperation(src *image.Gray, config MorphConfig) *image.Gray {
	if config.Operation == MorphNone || !config.Kernel.Valid() || config.Iterations <= 0 {
		return cloneGray(src)
	}

	n := config.Iterations
	switch config.Operation {
	case MorphDilate:
		return repeat(src, config.Kernel, n, true)
	case MorphErode:
		return repeat(src, config.Kernel, n, false)
	case MorphOpening:
		return repeat(repeat(src, config.Kernel, n, false), config.Kernel, n, true)
	case MorphClosing:
		return repeat(repeat(src, config.Kernel, n, true), config.Kernel, n, false)
	case MorphBlackhat:
		closed := repeat(repeat(src, config.Kernel, n, true), config.Kernel, n, false)
		return subtract(closed, src)
	default:
		return cloneGray(src)
	}
}

func repeat(src *image.Gray, se StructuringElement, n int, takeMax bool) *image.Gray {
	for range n {
		src = rankFilter(src, se, takeMax)
	}
	return src
}

// Erode shrinks bright regions.
func Erode(src *image.Gray, se StructuringElement, iterations int) *image.Gray {
	return ApplyMorphologicalOperation(src, MorphConfig{Operation: MorphErode, Kernel: se, Iterations: iterations})
}

// Dilate grows bright regions.
func Dilate(src *image.Gray, se StructuringElement, iterations int) *image.Gray {
	return ApplyMorphologicalOperation(src, MorphConfig{Operation: MorphDilate, Kernel: se, Iterations: iterations})
}

// Close fills dark gaps smaller than se.
func Close(src *image.Gray, se StructuringElement) *image.Gray {
	return ApplyMorphologicalOperation(src, MorphConfig{Operation: MorphClosing, Kernel: se, Iterations: 1})
}

// Open removes bright specks smaller than se.
func Open(src *image.Gray, se StructuringElement) *image.Gray {
	return ApplyMorphologicalOperation(src, MorphConfig{Operation: MorphOpening, Kernel: se, Iterations: 1})
}

// Blackhat returns Close(src) - src, highlighting dark features narrower
// than se on a lighter surround.
func Blackhat(src *image.Gray, se StructuringElement) *image.Gray {
	return ApplyMorphologicalOperation(src, MorphConfig{Operation: MorphBlackhat, Kernel: se, Iterations: 1})
}

// rankFilter computes a separable rectangular max (dilation) or min
// (erosion): one horizontal pass followed by one vertical pass.
func rankFilter(src *image.Gray, se StructuringElement, takeMax bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	ax, ay := se.anchor()
	pick := minU8
	if takeMax {
		pick = maxU8
	}

	tmp := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		out := tmp.Pix[y*tmp.Stride : y*tmp.Stride+w]
		for x := range w {
			lo, hi := max(0, x-ax), min(w-1, x+se.Width-1-ax)
			v := row[lo]
			for _, p := range row[lo+1 : hi+1] {
				v = pick(v, p)
			}
			out[x] = v
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		lo, hi := max(0, y-ay), min(h-1, y+se.Height-1-ay)
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		copy(out, tmp.Pix[lo*tmp.Stride:lo*tmp.Stride+w])
		for yy := lo + 1; yy <= hi; yy++ {
			row := tmp.Pix[yy*tmp.Stride : yy*tmp.Stride+w]
			for x := range w {
				out[x] = pick(out[x], row[x])
			}
		}
	}
	return dst
}

func minU8(a, b uint8) uint8 { return min(a, b) }

func maxU8(a, b uint8) uint8 { return max(a, b) }

// subtract returns a - b saturated at zero.
func subtract(a, b *image.Gray) *image.Gray {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		ra := a.Pix[y*a.Stride : y*a.Stride+w]
		rb := b.Pix[y*b.Stride : y*b.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range w {
			if ra[x] > rb[x] {
				out[x] = ra[x] - rb[x]
			}
		}
	}
	return dst
}

// cloneGray copies src into a fresh image anchored at the origin.
func cloneGray(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return dst
}
