package trainer

import (
	"context"
	"fmt"

	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

// TextResult is the outcome of TrainText.
type TextResult struct {
	Model      *lstm.Model
	Vocabulary *vocab.Vocabulary
	Added      int
	Losses     []float64
}

// TrainText trains on an in-memory text. Tokens unknown to v are added to a
// copy of v and the model is grown to match. Training always runs on a copy
// of m, so m and v are left untouched whether or not it succeeds.
// Cancellation is observed between epochs.
func TrainText(ctx context.Context, m *lstm.Model, v *vocab.Vocabulary, text string, epochs int, lr float64, seed int64) (*TextResult, error) {
	if epochs <= 0 || lr <= 0 {
		return nil, fmt.Errorf("%w: epochs %d and learning rate %g must be positive", ErrConfig, epochs, lr)
	}

	nv := v.Clone()
	added := nv.Extend(vocab.SplitVocabulary(text))
	nm, err := Fit(m, nv, seed)
	if err != nil {
		return nil, err
	}
	if nm == m {
		if nm, err = lstm.FromParams(m.Config(), m.Params().Clone()); err != nil {
			return nil, err
		}
	}

	examples, _, err := nv.Examples(text, nm.ContextWindow())
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: text yields no training windows", lstm.ErrNoExamples)
	}

	res := &TextResult{Model: nm, Vocabulary: nv, Added: added}
	for range epochs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loss, err := nm.TrainEpoch(examples, lr)
		if err != nil {
			return nil, err
		}
		res.Losses = append(res.Losses, loss)
	}
	return res, nil
}
