package metrics

import "math"

import "github.com/neurlang/srtrain/tensor"

const (
	filterSize  = 11
	filterSigma = 1.5
	k1          = 0.01
	k2          = 0.03
)

// gaussian returns a normalized size x size window.
func gaussian(size int, sigma float64) []float64 {
	w := make([]float64, size*size)
	center := float64(size-1) / 2
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dy, dx := float64(y)-center, float64(x)-center
			g := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			w[y*size+x] = g
			sum += g
		}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// SSIM is the mean structural similarity index over a Gaussian window. The
// window shrinks to fit images smaller than 11 pixels.
func SSIM(output, reference tensor.Tensor, maxValue float64) (float64, error) {
	if err := checkPair(output, reference); err != nil {
		return 0, err
	}
	batch, h, w, c := output.Shape[0], output.Shape[1], output.Shape[2], output.Shape[3]
	size := min(filterSize, h, w)
	window := gaussian(size, filterSigma)
	c1 := (k1 * maxValue) * (k1 * maxValue)
	c2 := (k2 * maxValue) * (k2 * maxValue)

	at := func(img tensor.Tensor, y, x, ch int) float64 {
		return img.Data[(y*w+x)*c+ch]
	}

	var total float64
	for b := 0; b < batch; b++ {
		o, r := output.Index(b), reference.Index(b)
		var image float64
		for ch := 0; ch < c; ch++ {
			var channel float64
			for y0 := 0; y0+size <= h; y0++ {
				for x0 := 0; x0+size <= w; x0++ {
					var mx, my, mxx, myy, mxy float64
					for dy := 0; dy < size; dy++ {
						for dx := 0; dx < size; dx++ {
							g := window[dy*size+dx]
							vx := at(o, y0+dy, x0+dx, ch)
							vy := at(r, y0+dy, x0+dx, ch)
							mx += g * vx
							my += g * vy
							mxx += g * vx * vx
							myy += g * vy * vy
							mxy += g * vx * vy
						}
					}
					sx := mxx - mx*mx
					sy := myy - my*my
					sxy := mxy - mx*my
					luminance := (2*mx*my + c1) / (mx*mx + my*my + c1)
					contrast := (2*sxy + c2) / (sx + sy + c2)
					channel += luminance * contrast
				}
			}
			image += channel / float64((h-size+1)*(w-size+1))
		}
		total += image / float64(c)
	}
	return total / float64(batch), nil
}
