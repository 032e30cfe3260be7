package lstm

import (
	"fmt"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/tensor"
)

// StepState is everything one recurrent step produces or consumes that
// backpropagation needs later.
type StepState struct {
	X     tensor.Tensor // input slice
	HPrev tensor.Tensor
	CPrev tensor.Tensor

	I, F, G, O tensor.Tensor // gate activations; G is the cell candidate
	C, H       tensor.Tensor
}

func (m *Model) gates() []backend.Gate {
	p := m.params
	return []backend.Gate{
		{W: p.Wi, U: p.Ui, B: p.Bi, Activation: tensor.Sigmoid},
		{W: p.Wf, U: p.Uf, B: p.Bf, Activation: tensor.Sigmoid},
		{W: p.Wc, U: p.Uc, B: p.Bc, Activation: tensor.Tanh},
		{W: p.Wo, U: p.Uo, B: p.Bo, Activation: tensor.Sigmoid},
	}
}

// Step advances the cell by one time slice.
//
//	c = f ⊙ cPrev + i ⊙ g
//	h = o ⊙ tanh(c)
func (m *Model) Step(x, hPrev, cPrev tensor.Tensor) (StepState, error) {
	acts, err := m.backend.Gates(x, hPrev, m.gates())
	if err != nil {
		return StepState{}, err
	}
	st := StepState{X: x, HPrev: hPrev, CPrev: cPrev, I: acts[0], F: acts[1], G: acts[2], O: acts[3]}

	keep, err := tensor.Mul(st.F, cPrev)
	if err != nil {
		return StepState{}, fmt.Errorf("forget: %w", err)
	}
	write, err := tensor.Mul(st.I, st.G)
	if err != nil {
		return StepState{}, err
	}
	if st.C, err = tensor.Add(keep, write); err != nil {
		return StepState{}, err
	}
	if st.H, err = tensor.Mul(st.O, tensor.Apply(st.C, tensor.Tanh)); err != nil {
		return StepState{}, err
	}
	return st, nil
}

// trace runs the cell over every slot of window starting from zero state and
// keeps each step.
func (m *Model) trace(window tensor.Tensor) ([]StepState, error) {
	if window.Rank() != 1 || window.Len() != m.InputSize() {
		return nil, fmt.Errorf("%w: window shape %v, want [%d]", ErrDimension, window.Shape(), m.InputSize())
	}
	h := tensor.Zeros(m.hidden)
	c := tensor.Zeros(m.hidden)
	steps := make([]StepState, m.window)
	for t := range m.window {
		x, err := window.Slice(t*m.vocab, m.vocab)
		if err != nil {
			return nil, err
		}
		st, err := m.Step(x, h, c)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", t, err)
		}
		steps[t] = st
		h, c = st.H, st.C
	}
	return steps, nil
}
