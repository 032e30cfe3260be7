package lstm

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestGrowPreservesOldPredictions(t *testing.T) {
	t.Parallel()
	const oldVocab, newVocab, window = 4, 7, 3
	m := newTestModel(t, oldVocab, 5, window, 6)
	if _, err := m.TrainEpoch([]Example{example(oldVocab, 2, 0, 1, 3)}, 0.2); err != nil {
		t.Fatalf("train: %v", err)
	}

	grown, err := Grow(m, newVocab, 99)
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	if grown.VocabSize() != newVocab || grown.InputSize() != newVocab*window {
		t.Fatalf("unexpected grown sizes vocab=%d input=%d", grown.VocabSize(), grown.InputSize())
	}

	for _, tokens := range [][]int{{0, 1, 3}, {3, 3, 2}, {1, 0, 0}} {
		old := windowOf(oldVocab, tokens...).Data()
		wide, err := ReencodeWindow(old, oldVocab, newVocab, window)
		if err != nil {
			t.Fatalf("reencode: %v", err)
		}
		if !slices.Equal(wide, windowOf(newVocab, tokens...).Data()) {
			t.Fatalf("reencoded window does not match direct encoding for %v", tokens)
		}

		before, err := m.PredictLogits(old)
		if err != nil {
			t.Fatalf("old logits: %v", err)
		}
		after, err := grown.PredictLogits(wide)
		if err != nil {
			t.Fatalf("grown logits: %v", err)
		}
		for o := range oldVocab {
			if math.Abs(before[o]-after[o]) > 1e-12 {
				t.Fatalf("tokens %v class %d: logit %v became %v", tokens, o, before[o], after[o])
			}
		}
	}
}

func TestGrowCopiesVocabularyIndependentWeights(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 3, 2, 2, 1)
	m.Params().Bf.Data()[1] = 0.75

	grown, err := Grow(m, 5, 2)
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	if !slices.Equal(grown.Params().Uc.Data(), m.Params().Uc.Data()) {
		t.Fatal("recurrent weights not copied")
	}
	if grown.Params().Bf.At(1) != 0.75 {
		t.Fatal("gate bias not copied")
	}
	for v := range 3 {
		for h := range 2 {
			if grown.Params().Wo.At(v, h) != m.Params().Wo.At(v, h) {
				t.Fatalf("W_o[%d,%d] not copied", v, h)
			}
		}
	}

	// The grown model owns its tensors.
	grown.Params().Uc.Data()[0] += 1
	if grown.Params().Uc.At(0, 0) == m.Params().Uc.At(0, 0) {
		t.Fatal("grown model shares storage with the source model")
	}
}

func TestGrowRejectsShrink(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 4, 2, 2, 1)
	if _, err := Grow(m, 4, 1); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if _, err := ReencodeWindow(make([]float64, 5), 4, 6, 2); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}
