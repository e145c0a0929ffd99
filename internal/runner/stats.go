package runner

import (
	"math"

	"github.com/mfellner/squeezeoff/internal/mat"
)

// Clip clamps a reconstruction to the [0, 255] pixel range and truncates to
// the integer grid, matching what an 8-bit image writer would store. It is
// idempotent on values already on the grid and monotonic in its input.
func Clip(z *mat.Matrix) *mat.Matrix {
	out := mat.New(z.Rows, z.Cols)
	for i, v := range z.Data {
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out.Data[i] = math.Trunc(v)
	}
	return out
}

// RMS is the reconstruction error between an original image and its clipped
// reconstruction: the standard deviation of the per-pixel difference over
// all pixels.
func RMS(x, z *mat.Matrix) float64 {
	n := len(x.Data)
	if n == 0 || n != len(z.Data) {
		return math.NaN()
	}
	var sum float64
	diff := make([]float64, n)
	for i := range x.Data {
		diff[i] = x.Data[i] - z.Data[i]
		sum += diff[i]
	}
	mean := sum / float64(n)
	var sq float64
	for _, d := range diff {
		sq += (d - mean) * (d - mean)
	}
	return math.Sqrt(sq / float64(n))
}
