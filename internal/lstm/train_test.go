package lstm

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/tensor"
)

func lossOf(t *testing.T, m *Model, ex Example) float64 {
	t.Helper()
	_, loss, err := m.Gradients(ex)
	if err != nil {
		t.Fatalf("gradients: %v", err)
	}
	return loss
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 3, 2, 2, 42)
	ex := example(3, 1, 0, 2)

	grads, _, err := m.Gradients(ex)
	if err != nil {
		t.Fatalf("gradients: %v", err)
	}

	const eps = 1e-5
	params := m.Params().Named(3, 2)
	analytic := grads.Named(3, 2)
	for n, nt := range params {
		data := nt.T.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := lossOf(t, m, ex)
			data[i] = orig - eps
			minus := lossOf(t, m, ex)
			data[i] = orig

			numeric := (plus - minus) / (2 * eps)
			got := analytic[n].T.Data()[i]
			if math.Abs(numeric-got) > 1e-4 {
				t.Errorf("%s[%d]: analytic %.8f, numeric %.8f", nt.Name, i, got, numeric)
			}
		}
	}

	// The input gate weight of the first active token must carry signal.
	if grads.Wi.At(0, 0) == 0 {
		t.Fatalf("expected non-zero gradient for W_i[0,0]")
	}
}

func TestGradientsDoNotModifyModel(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 4, 3, 2, 1)
	before := m.Params().Clone()
	if _, _, err := m.Gradients(example(4, 2, 1, 3)); err != nil {
		t.Fatalf("gradients: %v", err)
	}
	assertParamsEqual(t, before, m.Params(), 4, 3)
}

func TestFailedExampleLeavesWeightsUntouched(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 4, 3, 2, 1)
	before := m.Params().Clone()

	bad := []Example{
		{Input: windowOf(4, 1, 2), Target: tensor.Zeros(4)},
		{Input: windowOf(4, 1, 2), Target: tensor.Zeros(5)},
		{Input: tensor.Zeros(7), Target: tensor.Vector(oneHot(4, 0)...)},
		{Input: windowOf(4, 1, 2), Target: tensor.Vector(1, 0, 1, 0)},
		{Input: windowOf(4, 1, 2), Target: tensor.Vector(0, 0.5, 0, 0)},
		{Input: windowOf(4, 1, 2), Target: tensor.Vector(0, 1, 0, -1)},
	}
	want := []error{ErrTarget, ErrDimension, ErrDimension, ErrTarget, ErrTarget, ErrTarget}
	for i, ex := range bad {
		if _, err := m.TrainExample(ex, 0.5); !errors.Is(err, want[i]) {
			t.Errorf("case %d: expected %v, got %v", i, want[i], err)
		}
	}
	assertParamsEqual(t, before, m.Params(), 4, 3)
}

func TestTrainEpochEmpty(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 3, 2, 1, 1)
	if _, err := m.TrainEpoch(nil, 0.1); !errors.Is(err, ErrNoExamples) {
		t.Fatalf("expected ErrNoExamples, got %v", err)
	}
}

func TestTrainEpochAveragesLoss(t *testing.T) {
	t.Parallel()
	examples := []Example{example(4, 0, 1, 2), example(4, 3, 2, 1)}

	ref := newTestModel(t, 4, 3, 2, 8)
	var want float64
	for _, ex := range examples {
		loss, err := ref.TrainExample(ex, 0.05)
		if err != nil {
			t.Fatalf("train example: %v", err)
		}
		want += loss
	}
	want /= 2

	m := newTestModel(t, 4, 3, 2, 8)
	got, err := m.TrainEpoch(examples, 0.05)
	if err != nil {
		t.Fatalf("train epoch: %v", err)
	}
	if got != want {
		t.Fatalf("average loss: got %v, want %v", got, want)
	}
}

func TestRepeatedExampleLossDecreases(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 5, 4, 2, 3)
	examples := []Example{example(5, 4, 0, 3)}

	prev := math.Inf(1)
	for epoch := range 100 {
		loss, err := m.TrainEpoch(examples, 0.01)
		if err != nil {
			t.Fatalf("epoch %d: %v", epoch, err)
		}
		if loss > prev+1e-12 {
			t.Fatalf("epoch %d: loss rose from %v to %v", epoch, prev, loss)
		}
		prev = loss
	}
}

func TestLearnsNextToken(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 4, 8, 2, 1)
	examples := []Example{example(4, 3, 1, 2)}

	first := lossOf(t, m, examples[0])
	var last float64
	for epoch := range 200 {
		loss, err := m.TrainEpoch(examples, 0.1)
		if err != nil {
			t.Fatalf("epoch %d: %v", epoch, err)
		}
		last = loss
	}
	if last >= first {
		t.Fatalf("loss did not improve: first=%v last=%v", first, last)
	}

	probs, err := m.Predict(examples[0].Input.Data())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got := tensor.Argmax(tensor.Vector(probs...)); got != 3 {
		t.Fatalf("expected token 3 to be most likely, got %d (%v)", got, probs)
	}
}

func assertParamsEqual(t *testing.T, want, got *Params, vocab, hidden int) {
	t.Helper()
	w := want.Named(vocab, hidden)
	for i, nt := range got.Named(vocab, hidden) {
		if !slices.Equal(w[i].T.Data(), nt.T.Data()) {
			t.Fatalf("%s changed", nt.Name)
		}
	}
}

func BenchmarkTrainExample(b *testing.B) {
	for _, be := range []backend.Backend{backend.NewCPU(), backend.NewParallel(4)} {
		b.Run(be.Name(), func(b *testing.B) {
			m, err := New(Config{VocabSize: 64, HiddenSize: 32, ContextWindow: 4, Seed: 1, Backend: be})
			if err != nil {
				b.Fatal(err)
			}
			ex := example(64, 7, 1, 2, 3, 4)
			for b.Loop() {
				if _, err := m.TrainExample(ex, 0.01); err != nil {
					b.Fatal(err)
				}
			}
		})
		_ = be.Close()
	}
}
