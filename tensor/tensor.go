// Package tensor implements the dense row-major float64 tensor exchanged
// between datasets, models, optimizers and metrics. Images are NHWC.
package tensor

import "fmt"

type Tensor struct {
	Shape []int
	Data  []float64
}

// New allocates a zero tensor.
func New(shape ...int) Tensor {
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float64, size(shape))}
}

// FromData wraps data, checking that it matches shape.
func FromData(data []float64, shape ...int) (Tensor, error) {
	if len(data) != size(shape) {
		return Tensor{}, fmt.Errorf("tensor: %d values do not fit shape %v", len(data), shape)
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len is the number of elements.
func (t Tensor) Len() int {
	return len(t.Data)
}

// Rank is the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Clone deep-copies t.
func (t Tensor) Clone() Tensor {
	return Tensor{Shape: append([]int(nil), t.Shape...), Data: append([]float64(nil), t.Data...)}
}

// SameShape reports whether t and o have identical shapes.
func (t Tensor) SameShape(o Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Sum adds every element.
func (t Tensor) Sum() float64 {
	var s float64
	for _, v := range t.Data {
		s += v
	}
	return s
}

// Scale returns a copy of t multiplied by k.
func (t Tensor) Scale(k float64) Tensor {
	out := t.Clone()
	for i := range out.Data {
		out.Data[i] *= k
	}
	return out
}

// AddInPlace accumulates o into t.
func (t Tensor) AddInPlace(o Tensor) error {
	if !t.SameShape(o) {
		return fmt.Errorf("tensor: add shape %v to %v", o.Shape, t.Shape)
	}
	for i, v := range o.Data {
		t.Data[i] += v
	}
	return nil
}

// Index returns the i-th slice along the first axis, sharing storage.
func (t Tensor) Index(i int) Tensor {
	if t.Rank() == 0 {
		return t
	}
	inner := size(t.Shape[1:])
	return Tensor{Shape: append([]int(nil), t.Shape[1:]...), Data: t.Data[i*inner : (i+1)*inner]}
}

// Concat joins tensors along the first axis. All trailing dimensions must
// agree.
func Concat(parts ...Tensor) (Tensor, error) {
	if len(parts) == 0 {
		return Tensor{}, fmt.Errorf("tensor: concat of nothing")
	}
	first := parts[0]
	if first.Rank() == 0 {
		return Tensor{}, fmt.Errorf("tensor: concat of scalars")
	}
	rows := 0
	n := 0
	for _, p := range parts {
		if p.Rank() != first.Rank() {
			return Tensor{}, fmt.Errorf("tensor: concat rank %d with %d", p.Rank(), first.Rank())
		}
		for d := 1; d < p.Rank(); d++ {
			if p.Shape[d] != first.Shape[d] {
				return Tensor{}, fmt.Errorf("tensor: concat shape %v with %v", p.Shape, first.Shape)
			}
		}
		rows += p.Shape[0]
		n += p.Len()
	}
	out := Tensor{Shape: append([]int{rows}, first.Shape[1:]...), Data: make([]float64, 0, n)}
	for _, p := range parts {
		out.Data = append(out.Data, p.Data...)
	}
	return out, nil
}
