// Package metrics scores super-resolved images against their references.
// Images are NHWC tensors; every metric averages its per-image value over
// the batch.
package metrics

import "fmt"
import "math"

import "github.com/neurlang/srtrain/tensor"

// MaxValue is the dynamic range of pixels in [-1, 1].
const MaxValue = 2.0

func checkPair(output, reference tensor.Tensor) error {
	if output.Rank() != 4 {
		return fmt.Errorf("metrics: want NHWC images, got shape %v", output.Shape)
	}
	if !output.SameShape(reference) {
		return fmt.Errorf("metrics: output %v does not match reference %v", output.Shape, reference.Shape)
	}
	if output.Len() == 0 {
		return fmt.Errorf("metrics: empty batch")
	}
	return nil
}

// PSNR is the mean peak signal-to-noise ratio in decibels. Identical images
// score +Inf.
func PSNR(output, reference tensor.Tensor, maxValue float64) (float64, error) {
	if err := checkPair(output, reference); err != nil {
		return 0, err
	}
	batch := output.Shape[0]
	var total float64
	for b := 0; b < batch; b++ {
		o, r := output.Index(b), reference.Index(b)
		var mse float64
		for i, v := range o.Data {
			d := v - r.Data[i]
			mse += d * d
		}
		mse /= float64(o.Len())
		total += 20*math.Log10(maxValue) - 10*math.Log10(mse)
	}
	return total / float64(batch), nil
}
