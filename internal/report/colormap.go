package report

import (
	"image"
	"image/color"

	"github.com/mfellner/squeezeoff/internal/mat"
)

// The difference visualization maps (original − reconstruction + 128)
// through a seismic-style diverging colormap with transparency around zero
// error, so only the damaged regions stand out.

type ctrlPoint struct{ pos, val float64 }

var (
	cmRed   = []ctrlPoint{{0, 0}, {0.25, 0}, {0.5, 1}, {0.75, 1}, {1, 0.5}}
	cmGreen = []ctrlPoint{{0, 0}, {0.25, 0}, {0.5, 1}, {0.75, 0}, {1, 0}}
	cmBlue  = []ctrlPoint{{0, 0.3}, {0.25, 1}, {0.5, 1}, {0.75, 0}, {1, 0}}
	cmAlpha = []ctrlPoint{{0, 1}, {0.5, 0}, {1, 1}}
)

var errorColormap = buildColormap()

func buildColormap() [256]color.NRGBA {
	var lut [256]color.NRGBA
	for i := 0; i < 256; i++ {
		t := float64(i) / 255
		lut[i] = color.NRGBA{
			R: uint8(interpChannel(cmRed, t)*255 + 0.5),
			G: uint8(interpChannel(cmGreen, t)*255 + 0.5),
			B: uint8(interpChannel(cmBlue, t)*255 + 0.5),
			A: uint8(interpChannel(cmAlpha, t)*255 + 0.5),
		}
	}
	return lut
}

func interpChannel(points []ctrlPoint, t float64) float64 {
	if t <= points[0].pos {
		return points[0].val
	}
	for i := 1; i < len(points); i++ {
		if t <= points[i].pos {
			a, b := points[i-1], points[i]
			frac := (t - a.pos) / (b.pos - a.pos)
			return a.val + frac*(b.val-a.val)
		}
	}
	return points[len(points)-1].val
}

// DiffImage renders the pixel difference between an original and its clipped
// reconstruction through the colormap.
func DiffImage(x, z *mat.Matrix) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, x.Cols, x.Rows))
	for r := 0; r < x.Rows; r++ {
		for c := 0; c < x.Cols; c++ {
			idx := int(x.At(r, c) - z.At(r, c) + 128)
			if idx < 0 {
				idx = 0
			} else if idx > 255 {
				idx = 255
			}
			img.SetNRGBA(c, r, errorColormap[idx])
		}
	}
	return img
}

// GrayImage renders a clipped reconstruction as an 8-bit grayscale image.
func GrayImage(z *mat.Matrix) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, z.Cols, z.Rows))
	for r := 0; r < z.Rows; r++ {
		for c := 0; c < z.Cols; c++ {
			img.SetGray(c, r, color.Gray{Y: uint8(z.At(r, c))})
		}
	}
	return img
}
