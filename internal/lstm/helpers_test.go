package lstm

import (
	"testing"

	"github.com/samcharles93/recurrent/internal/tensor"
)

func oneHot(size, idx int) []float64 {
	v := make([]float64, size)
	v[idx] = 1
	return v
}

func windowOf(vocab int, tokens ...int) tensor.Tensor {
	w := make([]float64, 0, vocab*len(tokens))
	for _, tok := range tokens {
		w = append(w, oneHot(vocab, tok)...)
	}
	return tensor.Vector(w...)
}

func example(vocab, target int, tokens ...int) Example {
	return Example{
		Input:  windowOf(vocab, tokens...),
		Target: tensor.Vector(oneHot(vocab, target)...),
	}
}

func newTestModel(t *testing.T, vocab, hidden, window int, seed int64) *Model {
	t.Helper()
	m, err := New(Config{VocabSize: vocab, HiddenSize: hidden, ContextWindow: window, Seed: seed})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}
