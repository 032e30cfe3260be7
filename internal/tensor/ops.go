package tensor

import (
	"fmt"
	"math"
)

// SoftmaxEpsilon replaces a zero softmax denominator.
const SoftmaxEpsilon = 1e-9

// Func is an elementwise unary function.
type Func func(float64) float64

// Add adds two tensors.
//
// Identical shapes add elementwise. A 2-D [r,c] plus a 1-D [c] adds the vector
// to every row. An operand with exactly one element is broadcast over the
// other. Any other combination fails with ErrShapeMismatch.
func Add(a, b Tensor) (Tensor, error) {
	switch {
	case a.SameShape(b):
		out := Zeros(a.shape...)
		for i := range out.data {
			out.data[i] = a.data[i] + b.data[i]
		}
		return out, nil
	case a.Rank() == 2 && b.Rank() == 1 && a.shape[1] == b.shape[0]:
		out := Zeros(a.shape...)
		cols := a.shape[1]
		for r := 0; r < a.shape[0]; r++ {
			row := out.data[r*cols : (r+1)*cols]
			src := a.data[r*cols : (r+1)*cols]
			for j := range row {
				row[j] = src[j] + b.data[j]
			}
		}
		return out, nil
	case b.Len() == 1:
		return addScalar(a, b.data[0]), nil
	case a.Len() == 1:
		return addScalar(b, a.data[0]), nil
	default:
		return Tensor{}, fmt.Errorf("%w: add %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
}

func addScalar(t Tensor, s float64) Tensor {
	out := Zeros(t.shape...)
	for i, v := range t.data {
		out.data[i] = v + s
	}
	return out
}

// Sub computes a - b for identically shaped tensors.
func Sub(a, b Tensor) (Tensor, error) {
	if !a.SameShape(b) {
		return Tensor{}, fmt.Errorf("%w: sub %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
	out := Zeros(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] - b.data[i]
	}
	return out, nil
}

// Mul multiplies two identically shaped tensors elementwise.
func Mul(a, b Tensor) (Tensor, error) {
	if !a.SameShape(b) {
		return Tensor{}, fmt.Errorf("%w: elementwise multiply %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
	out := Zeros(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] * b.data[i]
	}
	return out, nil
}

// Scale multiplies every element by s.
func Scale(t Tensor, s float64) Tensor {
	out := Zeros(t.shape...)
	for i, v := range t.data {
		out.data[i] = v * s
	}
	return out
}

// MatMul computes the matrix product a·b.
//
// A 1-D left operand of length k is treated as a [1,k] row and a 1-D right
// operand as a [k,1] column. When the left operand started 1-D the [1,n]
// result is returned as a 1-D [n]; when only the right operand started 1-D the
// [m,1] result is returned as a 1-D [m].
func MatMul(a, b Tensor) (Tensor, error) {
	if a.Rank() > 2 || b.Rank() > 2 {
		return Tensor{}, fmt.Errorf("%w: matmul needs rank <= 2, got %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
	ar, ac := 1, a.shape[0]
	if a.Rank() == 2 {
		ar, ac = a.shape[0], a.shape[1]
	}
	br, bc := b.shape[0], 1
	if b.Rank() == 2 {
		bc = b.shape[1]
	}
	if ac != br {
		return Tensor{}, fmt.Errorf("%w: matmul %v by %v", ErrShapeMismatch, a.shape, b.shape)
	}

	var out Tensor
	switch {
	case a.Rank() == 1:
		out = Zeros(bc)
	case b.Rank() == 1:
		out = Zeros(ar)
	default:
		out = Zeros(ar, bc)
	}
	for i := 0; i < ar; i++ {
		dst := out.data[i*bc : (i+1)*bc]
		for p := 0; p < ac; p++ {
			av := a.data[i*ac+p]
			if av == 0 {
				continue
			}
			row := b.data[p*bc : (p+1)*bc]
			for j, bv := range row {
				dst[j] += av * bv
			}
		}
	}
	return out, nil
}

// Apply maps f over every element.
func Apply(t Tensor, f Func) Tensor {
	out := Zeros(t.shape...)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// Softmax returns the max-stabilized softmax of a 1-D tensor.
func Softmax(t Tensor) Tensor {
	out := Zeros(t.shape...)
	if t.Len() == 0 {
		return out
	}
	maxv := Max(t)
	var sum float64
	for i, v := range t.data {
		e := math.Exp(v - maxv)
		out.data[i] = e
		sum += e
	}
	if sum == 0 {
		sum = SoftmaxEpsilon
	}
	for i := range out.data {
		out.data[i] /= sum
	}
	return out
}

// Max returns the largest element.
func Max(t Tensor) float64 {
	m := t.data[0]
	for _, v := range t.data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Argmax returns the flat index of the largest element; ties go to the lowest index.
func Argmax(t Tensor) int {
	best := 0
	for i, v := range t.data {
		if v > t.data[best] {
			best = i
		}
	}
	return best
}

// Sigmoid computes the logistic sigmoid.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh computes the hyperbolic tangent.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// SigmoidPrime is the sigmoid derivative expressed in terms of s = Sigmoid(x).
func SigmoidPrime(s float64) float64 {
	return s * (1 - s)
}

// TanhPrime is the tanh derivative expressed in terms of s = Tanh(x).
func TanhPrime(s float64) float64 {
	return 1 - s*s
}
