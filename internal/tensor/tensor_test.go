package tensor

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNewValidatesLength(t *testing.T) {
	t.Parallel()
	if _, err := New([]float64{1, 2, 3}, 2, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := New([]float64{}, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for zero dim, got %v", err)
	}
	if _, err := New([]float64{1, 2, 3, 4, 5, 6}, 2, 3); err != nil {
		t.Fatalf("new: %v", err)
	}
}

func TestOffsetRowMajor(t *testing.T) {
	t.Parallel()
	x := Zeros(2, 3, 4)

	tests := []struct {
		idx  []int
		want int
	}{
		{[]int{0, 0, 0}, 0},
		{[]int{0, 0, 3}, 3},
		{[]int{0, 1, 0}, 4},
		{[]int{1, 0, 0}, 12},
		{[]int{1, 2, 3}, 23},
	}
	for _, tc := range tests {
		got, err := x.Offset(tc.idx...)
		if err != nil {
			t.Fatalf("Offset(%v): %v", tc.idx, err)
		}
		if got != tc.want {
			t.Errorf("Offset(%v): got %d, want %d", tc.idx, got, tc.want)
		}
	}

	if _, err := x.Offset(2, 0, 0); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
	if _, err := x.Offset(0, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestOperationsDoNotMutate(t *testing.T) {
	t.Parallel()
	a := Vector(1, 2, 3)
	b := Vector(4, 5, 6)
	if _, err := Add(a, b); err != nil {
		t.Fatal(err)
	}
	_ = Apply(a, Sigmoid)
	_ = Softmax(a)
	if a.At(0) != 1 || a.At(1) != 2 || a.At(2) != 3 {
		t.Fatalf("operand mutated: %v", a.Data())
	}
}

func TestSliceCopies(t *testing.T) {
	t.Parallel()
	x := Vector(1, 2, 3, 4)
	s, err := x.Slice(1, 2)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	s.Data()[0] = 99
	if x.At(1) != 2 {
		t.Fatalf("slice shares storage with source")
	}
	if _, err := x.Slice(3, 2); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestAddScaledInPlace(t *testing.T) {
	t.Parallel()
	p := Vector(1, 1)
	if err := p.AddScaledInPlace(-0.5, Vector(2, 4)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.At(0) != 0 || p.At(1) != -1 {
		t.Fatalf("unexpected update result %v", p.Data())
	}
	if err := p.AddScaledInPlace(1, Vector(1)); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFillUniformDeterministic(t *testing.T) {
	t.Parallel()
	a := FillUniform(rand.New(rand.NewSource(7)), 0.1, 4, 4)
	b := FillUniform(rand.New(rand.NewSource(7)), 0.1, 4, 4)
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("values differ at %d", i)
		}
		if v := a.Data()[i]; v <= -0.1 || v >= 0.1 {
			t.Fatalf("value %v out of range", v)
		}
	}
}
