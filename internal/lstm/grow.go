package lstm

import (
	"fmt"

	"github.com/samcharles93/recurrent/internal/tensor"
)

// Grow returns a new model sized for newVocab that reuses every weight of m
// whose vocabulary index is below m.VocabSize(). Recurrent weights and gate
// biases are copied unchanged. Entries that only exist in the larger model
// keep their fresh initialisation drawn from seed. m is not modified.
func Grow(m *Model, newVocab int, seed int64) (*Model, error) {
	oldVocab := m.vocab
	if newVocab <= oldVocab {
		return nil, fmt.Errorf("%w: new vocabulary %d must exceed %d", ErrConfig, newVocab, oldVocab)
	}
	cfg := m.Config()
	cfg.VocabSize = newVocab
	cfg.Seed = seed
	grown, err := New(cfg)
	if err != nil {
		return nil, err
	}

	src, dst := m.params, grown.params
	for _, pair := range [][2]*tensor.Tensor{
		{&src.Wi, &dst.Wi}, {&src.Wf, &dst.Wf}, {&src.Wc, &dst.Wc}, {&src.Wo, &dst.Wo},
	} {
		copyRows(*pair[1], *pair[0], oldVocab)
	}
	dst.Ui, dst.Bi = src.Ui.Clone(), src.Bi.Clone()
	dst.Uf, dst.Bf = src.Uf.Clone(), src.Bf.Clone()
	dst.Uc, dst.Bc = src.Uc.Clone(), src.Bc.Clone()
	dst.Uo, dst.Bo = src.Uo.Clone(), src.Bo.Clone()

	copyCols(dst.Wout, src.Wout, oldVocab)
	copy(dst.Bout.Data()[:oldVocab], src.Bout.Data())

	if err := dst.Validate(newVocab, m.hidden); err != nil {
		return nil, err
	}
	return grown, nil
}

// copyRows copies the first n rows of src into dst; both are row-major with
// the same column count.
func copyRows(dst, src tensor.Tensor, n int) {
	cols := src.Dim(1)
	copy(dst.Data()[:n*cols], src.Data()[:n*cols])
}

// copyCols copies the first n columns of every row of src into dst.
func copyCols(dst, src tensor.Tensor, n int) {
	dcols, scols := dst.Dim(1), src.Dim(1)
	for r := range src.Dim(0) {
		copy(dst.Data()[r*dcols:r*dcols+n], src.Data()[r*scols:r*scols+n])
	}
}

// ReencodeWindow widens a flattened window encoded for oldVocab so each of
// its slots occupies newVocab entries. Token ids keep their positions.
func ReencodeWindow(window []float64, oldVocab, newVocab, contextWindow int) ([]float64, error) {
	if newVocab < oldVocab || len(window) != oldVocab*contextWindow {
		return nil, fmt.Errorf("%w: window of %d for vocab %d and window %d", ErrDimension, len(window), oldVocab, contextWindow)
	}
	out := make([]float64, newVocab*contextWindow)
	for t := range contextWindow {
		copy(out[t*newVocab:t*newVocab+oldVocab], window[t*oldVocab:(t+1)*oldVocab])
	}
	return out, nil
}
