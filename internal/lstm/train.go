package lstm

import (
	"fmt"
	"math"

	"github.com/samcharles93/recurrent/internal/tensor"
)

// LogEpsilon guards the logarithm in the cross-entropy loss.
const LogEpsilon = 1e-9

// Example is one training pair: a flattened one-hot window and the one-hot
// encoding of the token that follows it.
type Example struct {
	Input  tensor.Tensor
	Target tensor.Tensor
}

// Gradients computes the cross-entropy loss of one example and the gradient
// of that loss with respect to every parameter. The model is not modified.
func (m *Model) Gradients(ex Example) (*Params, float64, error) {
	target, err := m.targetIndex(ex.Target)
	if err != nil {
		return nil, 0, err
	}
	steps, err := m.trace(ex.Input)
	if err != nil {
		return nil, 0, err
	}
	last := steps[len(steps)-1]
	logits, err := m.project(last.H)
	if err != nil {
		return nil, 0, err
	}
	probs := tensor.Softmax(logits)
	loss := -math.Log(probs.Data()[target] + LogEpsilon)

	// Softmax followed by cross-entropy differentiates to probs - target.
	gradLogits, err := tensor.Sub(probs, ex.Target)
	if err != nil {
		return nil, 0, err
	}

	grads := zeroParams(m.vocab, m.hidden)
	outer(grads.Wout.Data(), last.H.Data(), gradLogits.Data())
	copy(grads.Bout.Data(), gradLogits.Data())

	gh, err := tensor.MatMul(m.params.Wout, gradLogits)
	if err != nil {
		return nil, 0, fmt.Errorf("output backprop: %w", err)
	}
	m.backprop(steps, gh.Data(), grads)
	return grads, loss, nil
}

// backprop walks the steps in reverse, accumulating gate gradients into grads.
// gradH is the loss gradient with respect to the final hidden state.
func (m *Model) backprop(steps []StepState, gradH []float64, grads *Params) {
	n := m.hidden
	p := m.params
	gradC := make([]float64, n)

	di := make([]float64, n)
	df := make([]float64, n)
	dg := make([]float64, n)
	do := make([]float64, n)

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		i, f, g, o := st.I.Data(), st.F.Data(), st.G.Data(), st.O.Data()
		c, cPrev := st.C.Data(), st.CPrev.Data()

		for k := range n {
			tc := tensor.Tanh(c[k])
			do[k] = gradH[k] * tc * tensor.SigmoidPrime(o[k])
			dc := gradH[k]*o[k]*tensor.TanhPrime(tc) + gradC[k]
			dg[k] = dc * i[k] * tensor.TanhPrime(g[k])
			di[k] = dc * g[k] * tensor.SigmoidPrime(i[k])
			df[k] = dc * cPrev[k] * tensor.SigmoidPrime(f[k])
			gradC[k] = dc * f[k]
		}

		prevH := make([]float64, n)
		ui, uf, uc, uo := p.Ui.Data(), p.Uf.Data(), p.Uc.Data(), p.Uo.Data()
		for h := range n {
			row := h * n
			var sum float64
			for k := range n {
				sum += di[k]*ui[row+k] + df[k]*uf[row+k] + dg[k]*uc[row+k] + do[k]*uo[row+k]
			}
			prevH[h] = sum
		}

		x, hPrev := st.X.Data(), st.HPrev.Data()
		accumulate(grads.Wi, grads.Ui, grads.Bi, x, hPrev, di)
		accumulate(grads.Wf, grads.Uf, grads.Bf, x, hPrev, df)
		accumulate(grads.Wc, grads.Uc, grads.Bc, x, hPrev, dg)
		accumulate(grads.Wo, grads.Uo, grads.Bo, x, hPrev, do)

		gradH = prevH
	}
}

// accumulate adds one gate's step gradient into its W, U, and b gradients.
func accumulate(w, u, b tensor.Tensor, x, hPrev, gate []float64) {
	outer(w.Data(), x, gate)
	outer(u.Data(), hPrev, gate)
	bd := b.Data()
	for k, v := range gate {
		bd[k] += v
	}
}

// outer performs dst[r, c] += rows[r] * cols[c] for a row-major dst.
func outer(dst, rows, cols []float64) {
	n := len(cols)
	for r, rv := range rows {
		if rv == 0 {
			continue
		}
		line := dst[r*n : (r+1)*n]
		for c, cv := range cols {
			line[c] += rv * cv
		}
	}
}

// targetIndex returns the position of the single 1 in an exactly one-hot target.
func (m *Model) targetIndex(target tensor.Tensor) (int, error) {
	if target.Rank() != 1 || target.Len() != m.vocab {
		return 0, fmt.Errorf("%w: target shape %v, want [%d]", ErrDimension, target.Shape(), m.vocab)
	}
	idx := -1
	for k, v := range target.Data() {
		switch {
		case v == 0:
		case v == 1 && idx < 0:
			idx = k
		default:
			return 0, fmt.Errorf("%w: entry %d is %g", ErrTarget, k, v)
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: no entry is set", ErrTarget)
	}
	return idx, nil
}

// ApplyGradients performs plain gradient descent: param -= lr * grad.
func (m *Model) ApplyGradients(grads *Params, lr float64) error {
	if err := grads.Validate(m.vocab, m.hidden); err != nil {
		return err
	}
	gs := grads.Named(m.vocab, m.hidden)
	for i, nt := range m.params.Named(m.vocab, m.hidden) {
		if err := nt.T.AddScaledInPlace(-lr, *gs[i].T); err != nil {
			return fmt.Errorf("%s: %w", nt.Name, err)
		}
	}
	return nil
}

// TrainExample computes the full gradient of one example and only then
// updates the weights. It returns the example's loss.
func (m *Model) TrainExample(ex Example, lr float64) (float64, error) {
	grads, loss, err := m.Gradients(ex)
	if err != nil {
		return 0, err
	}
	if err := m.ApplyGradients(grads, lr); err != nil {
		return 0, err
	}
	return loss, nil
}

// TrainEpoch trains on each example in order, updating after every one, and
// returns the mean loss.
func (m *Model) TrainEpoch(examples []Example, lr float64) (float64, error) {
	if len(examples) == 0 {
		return 0, ErrNoExamples
	}
	var total float64
	for i, ex := range examples {
		loss, err := m.TrainExample(ex, lr)
		if err != nil {
			return 0, fmt.Errorf("example %d: %w", i, err)
		}
		total += loss
	}
	return total / float64(len(examples)), nil
}
