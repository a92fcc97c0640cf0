package metrics

import "github.com/neurlang/srtrain/tensor"

// Composite lays the reference batch side by side in one row and the output
// batch in a second row below it, then maps [-1, 1] pixels into [0, 1].
// The result has shape [2H, B*W, C].
func Composite(reference, output tensor.Tensor) (tensor.Tensor, error) {
	if err := checkPair(output, reference); err != nil {
		return tensor.Tensor{}, err
	}
	batch, h, w, c := reference.Shape[0], reference.Shape[1], reference.Shape[2], reference.Shape[3]
	out := tensor.New(2*h, batch*w, c)
	rowWidth := batch * w * c
	for row, src := range []tensor.Tensor{reference, output} {
		for b := 0; b < batch; b++ {
			img := src.Index(b)
			for y := 0; y < h; y++ {
				dst := (row*h+y)*rowWidth + b*w*c
				for i, v := range img.Data[y*w*c : (y+1)*w*c] {
					out.Data[dst+i] = v*0.5 + 0.5
				}
			}
		}
	}
	return out, nil
}
