package tensor

import (
	"fmt"
	"math/rand"
	"slices"
)

// Tensor is a dense row-major n-dimensional array of float64 values.
//
// The length of the backing slice always equals the product of the shape.
// Operations in this package never modify their operands; each returns a
// freshly allocated Tensor.
type Tensor struct {
	shape []int
	data  []float64
}

// New wraps data in a tensor of the given shape. The data slice is not copied.
func New(data []float64, shape ...int) (Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return Tensor{}, err
	}
	if len(data) != n {
		return Tensor{}, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return Tensor{shape: slices.Clone(shape), data: data}, nil
}

// MustNew is like New but panics on error. It is intended for literals in
// tests and for shapes the caller has already validated.
func MustNew(data []float64, shape ...int) Tensor {
	t, err := New(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape ...int) Tensor {
	n, err := numElements(shape)
	if err != nil {
		panic(err)
	}
	return Tensor{shape: slices.Clone(shape), data: make([]float64, n)}
}

// Vector builds a 1-D tensor holding a copy of values.
func Vector(values ...float64) Tensor {
	return Tensor{shape: []int{len(values)}, data: slices.Clone(values)}
}

// Shape returns a copy of the dimension sizes.
func (t Tensor) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t Tensor) Len() int { return len(t.data) }

// Data returns the backing slice. It shares storage with t.
func (t Tensor) Data() []float64 { return t.data }

// Clone returns a deep copy of t.
func (t Tensor) Clone() Tensor {
	return Tensor{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// SameShape reports whether t and o have identical shapes.
func (t Tensor) SameShape(o Tensor) bool { return slices.Equal(t.shape, o.shape) }

// Offset converts a coordinate tuple into a flat row-major offset.
func (t Tensor) Offset(idx ...int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, fmt.Errorf("%w: %d indices for rank %d", ErrShapeMismatch, len(idx), len(t.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			return 0, fmt.Errorf("%w: index %d out of range [0,%d) on axis %d", ErrIndex, v, t.shape[i], i)
		}
		off = off*t.shape[i] + v
	}
	return off, nil
}

// At returns the element at the given coordinates. It panics on a bad index.
func (t Tensor) At(idx ...int) float64 {
	off, err := t.Offset(idx...)
	if err != nil {
		panic(err)
	}
	return t.data[off]
}

// Reshape returns a copy of t with a new shape of the same total size.
func (t Tensor) Reshape(shape ...int) (Tensor, error) {
	out, err := New(slices.Clone(t.data), shape...)
	if err != nil {
		return Tensor{}, fmt.Errorf("reshape %v to %v: %w", t.shape, shape, err)
	}
	return out, nil
}

// Slice returns a copy of the flat elements [start, start+n) as a 1-D tensor.
func (t Tensor) Slice(start, n int) (Tensor, error) {
	if start < 0 || n < 0 || start+n > len(t.data) {
		return Tensor{}, fmt.Errorf("%w: slice [%d,%d) of %d elements", ErrIndex, start, start+n, len(t.data))
	}
	return Vector(t.data[start : start+n]...), nil
}

// AddScaledInPlace performs t += alpha*g. It is the only mutating operation
// and exists for parameter tensors owned exclusively by one model.
func (t Tensor) AddScaledInPlace(alpha float64, g Tensor) error {
	if !t.SameShape(g) {
		return fmt.Errorf("%w: update %v with %v", ErrShapeMismatch, t.shape, g.shape)
	}
	for i, v := range g.data {
		t.data[i] += alpha * v
	}
	return nil
}

// FillUniform returns a tensor of the given shape whose values are drawn
// uniformly from (-scale, scale) using rng.
func FillUniform(rng *rand.Rand, scale float64, shape ...int) Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = (rng.Float64()*2 - 1) * scale
	}
	return t
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	n := 1
	maxInt := int(^uint(0) >> 1)
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: invalid dim %d", ErrShapeMismatch, d)
		}
		if n > maxInt/d {
			return 0, fmt.Errorf("%w: tensor too large", ErrShapeMismatch)
		}
		n *= d
	}
	return n, nil
}
