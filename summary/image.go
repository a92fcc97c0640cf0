package summary

import "bytes"
import "fmt"
import "image"
import "image/color"
import "image/png"
import "math"
import "os"

import "github.com/neurlang/srtrain/fsx"
import "github.com/neurlang/srtrain/tensor"

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

func to8(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(math.Min(1, math.Max(0, v)) * 255))
}

// encodePNG maps a [H, W, C] tensor to grayscale (C=1) or RGB (C>=3).
func encodePNG(img tensor.Tensor) ([]byte, error) {
	if img.Rank() != 3 {
		return nil, fmt.Errorf("want [H, W, C] image, got shape %v", img.Shape)
	}
	h, w, c := img.Shape[0], img.Shape[1], img.Shape[2]
	if c != 1 && c < 3 {
		return nil, fmt.Errorf("unsupported channel count %d", c)
	}
	var buf bytes.Buffer
	if c == 1 {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				gray.SetGray(x, y, color.Gray{Y: to8(img.Data[y*w+x])})
			}
		}
		if err := png.Encode(&buf, gray); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.Data[(y*w+x)*c:]
			rgba.SetNRGBA(x, y, color.NRGBA{R: to8(p[0]), G: to8(p[1]), B: to8(p[2]), A: 255})
		}
	}
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePNG(path string, img tensor.Tensor) error {
	raw, err := encodePNG(img)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(path, raw, 0o644)
}
