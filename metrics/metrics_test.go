package metrics

import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/srtrain/tensor"

func filled(v float64, shape ...int) tensor.Tensor {
	t := tensor.New(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func ramp(shape ...int) tensor.Tensor {
	t := tensor.New(shape...)
	for i := range t.Data {
		t.Data[i] = math.Sin(float64(i)*0.37) * 0.9
	}
	return t
}

func TestPSNR(t *testing.T) {
	a := filled(0, 2, 4, 4, 3)
	b := filled(0.5, 2, 4, 4, 3)
	got, err := PSNR(a, b, MaxValue)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(2)-10*math.Log10(0.25), got, 1e-9)

	same, err := PSNR(a, a, MaxValue)
	require.NoError(t, err)
	assert.True(t, math.IsInf(same, 1))
}

func TestSSIM_IdenticalIsOne(t *testing.T) {
	img := ramp(2, 16, 16, 3)
	got, err := SSIM(img, img.Clone(), MaxValue)
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-9)
}

func TestSSIM_ConstantImages(t *testing.T) {
	a := filled(0, 1, 12, 12, 1)
	b := filled(0.5, 1, 12, 12, 1)
	c1 := (k1 * MaxValue) * (k1 * MaxValue)
	got, err := SSIM(a, b, MaxValue)
	require.NoError(t, err)
	assert.InDelta(t, c1/(0.25+c1), got, 1e-9)

	back, err := SSIM(b, a, MaxValue)
	require.NoError(t, err)
	assert.InDelta(t, got, back, 1e-12)
}

func TestSSIM_SmallImagesShrinkWindow(t *testing.T) {
	img := ramp(1, 4, 6, 3)
	noisy := img.Clone()
	noisy.Data[5] += 0.3
	got, err := SSIM(img, noisy, MaxValue)
	require.NoError(t, err)
	assert.Less(t, got, 1.0)
	assert.Greater(t, got, 0.0)
}

func TestShapeErrors(t *testing.T) {
	_, err := PSNR(filled(0, 1, 4, 4, 3), filled(0, 1, 4, 4, 1), MaxValue)
	require.Error(t, err)
	_, err = SSIM(filled(0, 4, 4), filled(0, 4, 4), MaxValue)
	require.Error(t, err)
	_, err = Composite(filled(0, 0, 4, 4, 3), filled(0, 0, 4, 4, 3))
	require.Error(t, err)
}

func TestComposite_Layout(t *testing.T) {
	hd := filled(1, 2, 2, 3, 1)
	sr := filled(-1, 2, 2, 3, 1)
	hd.Data[3] = 0 // image 0, row 1, col 0

	out, err := Composite(hd, sr)
	require.NoError(t, err)
	require.Equal(t, []int{4, 6, 1}, out.Shape)

	at := func(y, x int) float64 { return out.Data[y*6+x] }
	assert.Equal(t, 1.0, at(0, 0))
	assert.Equal(t, 1.0, at(0, 5))
	assert.Equal(t, 0.5, at(1, 0))
	assert.Equal(t, 0.0, at(2, 0))
	assert.Equal(t, 0.0, at(3, 5))
}
