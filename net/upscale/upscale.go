// Package upscale is the built-in super-resolution model family. Its
// principal model upscales by nearest neighbour and applies a learned gain
// and bias per sub-pixel position and channel; its extension adds a mean
// squared error against the HD reference.
package upscale

import "fmt"

import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/tensor"

const (
	Name          = "upscale"
	PrincipalName = "upscaler"
	ExtensionName = "upscaler_mse"
)

// Register adds the family to r.
func Register(r *model.Registry) {
	r.Register(Name, model.FamilyFunc(Build))
}

// Build reads "scale" (default 2) and "channels" (default 3).
func Build(parameters map[string]any) (*model.Set, error) {
	scale, err := intParam(parameters, "scale", 2)
	if err != nil {
		return nil, err
	}
	channels, err := intParam(parameters, "channels", 3)
	if err != nil {
		return nil, err
	}
	if scale < 1 || channels < 1 {
		return nil, fmt.Errorf("upscale: scale and channels must be positive, got %d and %d", scale, channels)
	}
	p := New(scale, channels)
	return &model.Set{
		Extensions: map[string]model.Extension{ExtensionName: &Extension{Upscaler: p}},
		Principals: map[string]model.Principal{PrincipalName: p},
	}, nil
}

func intParam(parameters map[string]any, key string, def int) (int, error) {
	v, ok := parameters[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("upscale: parameter %s must be an integer, got %v", key, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("upscale: parameter %s must be an integer, got %T", key, v)
}

// Upscaler is the principal model.
type Upscaler struct {
	Scale    int
	Channels int
	gain     *model.Parameter
	bias     *model.Parameter
}

// New creates an identity-initialised upscaler.
func New(scale, channels int) *Upscaler {
	gain := tensor.New(scale, scale, channels)
	for i := range gain.Data {
		gain.Data[i] = 1
	}
	return &Upscaler{
		Scale:    scale,
		Channels: channels,
		gain:     &model.Parameter{Name: "gain", Value: gain},
		bias:     &model.Parameter{Name: "bias", Value: tensor.New(scale, scale, channels)},
	}
}

func (u *Upscaler) Parameters() []*model.Parameter {
	return []*model.Parameter{u.gain, u.bias}
}

// Predict maps sd [N,h,w,C] to [N,h*scale,w*scale,C].
func (u *Upscaler) Predict(inputs []tensor.Tensor) (tensor.Tensor, error) {
	if len(inputs) < 1 {
		return tensor.Tensor{}, fmt.Errorf("upscale: predict needs sd images")
	}
	sd := inputs[0]
	if err := u.checkSD(sd); err != nil {
		return tensor.Tensor{}, err
	}
	n, h, w, c := sd.Shape[0], sd.Shape[1], sd.Shape[2], sd.Shape[3]
	s := u.Scale
	out := tensor.New(n, h*s, w*s, c)
	H, W := h*s, w*s
	for b := 0; b < n; b++ {
		for y := 0; y < H; y++ {
			for x := 0; x < W; x++ {
				for ch := 0; ch < c; ch++ {
					k := ((y%s)*s+x%s)*c + ch
					v := sd.Data[((b*h+y/s)*w+x/s)*c+ch]
					out.Data[((b*H+y)*W+x)*c+ch] = u.gain.Value.Data[k]*v + u.bias.Value.Data[k]
				}
			}
		}
	}
	return out, nil
}

func (u *Upscaler) checkSD(sd tensor.Tensor) error {
	if sd.Rank() != 4 || sd.Shape[3] != u.Channels {
		return fmt.Errorf("upscale: sd images must be [N,h,w,%d], got %v", u.Channels, sd.Shape)
	}
	return nil
}

// Extension trains an Upscaler with mean squared error. Inputs are
// (sd_images, hd_images).
type Extension struct {
	Upscaler *Upscaler
}

func (e *Extension) Parameters() []*model.Parameter {
	return e.Upscaler.Parameters()
}

func (e *Extension) Loss(inputs []tensor.Tensor) (model.Loss, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("upscale: loss needs (sd, hd), got %d inputs", len(inputs))
	}
	sd, hd := inputs[0], inputs[1]
	out, err := e.Upscaler.Predict([]tensor.Tensor{sd})
	if err != nil {
		return nil, err
	}
	if !out.SameShape(hd) {
		return nil, fmt.Errorf("upscale: output %v does not match hd %v", out.Shape, hd.Shape)
	}
	m := float64(out.Len())
	values := tensor.New(out.Shape...)
	for i := range values.Data {
		d := out.Data[i] - hd.Data[i]
		values.Data[i] = d * d / m
	}
	return &mseLoss{u: e.Upscaler, sd: sd, hd: hd, out: out, values: values}, nil
}

type mseLoss struct {
	u      *Upscaler
	sd     tensor.Tensor
	hd     tensor.Tensor
	out    tensor.Tensor
	values tensor.Tensor
}

func (l *mseLoss) Values() tensor.Tensor {
	return l.values
}

func (l *mseLoss) Gradients(scale float64) ([]tensor.Tensor, error) {
	s, c := l.u.Scale, l.u.Channels
	n, h, w := l.sd.Shape[0], l.sd.Shape[1], l.sd.Shape[2]
	H, W := h*s, w*s
	m := float64(l.out.Len())
	dGain := tensor.New(s, s, c)
	dBias := tensor.New(s, s, c)
	for b := 0; b < n; b++ {
		for y := 0; y < H; y++ {
			for x := 0; x < W; x++ {
				for ch := 0; ch < c; ch++ {
					i := ((b*H+y)*W+x)*c + ch
					k := ((y%s)*s+x%s)*c + ch
					d := scale * 2 * (l.out.Data[i] - l.hd.Data[i]) / m
					dGain.Data[k] += d * l.sd.Data[((b*h+y/s)*w+x/s)*c+ch]
					dBias.Data[k] += d
				}
			}
		}
	}
	return []tensor.Tensor{dGain, dBias}, nil
}
