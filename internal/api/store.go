package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/samcharles93/recurrent/internal/checkpoint"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

// ModelStoreConfig names where trained weights are written back. Empty paths
// keep updates in memory only.
type ModelStoreConfig struct {
	ModelPath string
	VocabPath string
	// Seed initialises rows added when the vocabulary grows.
	Seed int64
}

// ModelStore serialises access to one model and its vocabulary. The model is
// single-threaded, so every request holds the lock for its full duration.
type ModelStore struct {
	cfg   ModelStoreConfig
	mu    sync.Mutex
	model *lstm.Model
	vocab *vocab.Vocabulary
}

func NewModelStore(m *lstm.Model, v *vocab.Vocabulary, cfg ModelStoreConfig) (*ModelStore, error) {
	if m == nil || v == nil {
		return nil, fmt.Errorf("api: model and vocabulary are required")
	}
	if m.VocabSize() != v.Size() {
		return nil, fmt.Errorf("api: %w: model vocabulary %d, vocabulary %d", lstm.ErrDimension, m.VocabSize(), v.Size())
	}
	return &ModelStore{cfg: cfg, model: m, vocab: v}, nil
}

// With runs fn while holding the model.
func (s *ModelStore) With(ctx context.Context, fn func(m *lstm.Model, v *vocab.Vocabulary) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.model, s.vocab)
}

// Update runs fn while holding the model and installs the pair it returns
// once it has been persisted. Paths left empty skip persistence; saved
// reports whether both files were written. On any error the held pair is
// unchanged.
func (s *ModelStore) Update(ctx context.Context, fn func(m *lstm.Model, v *vocab.Vocabulary) (*lstm.Model, *vocab.Vocabulary, error)) (saved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m, v, err := fn(s.model, s.vocab)
	if err != nil {
		return false, err
	}

	// The vocabulary goes first: a vocabulary larger than the saved model is
	// grown into on the next load, the reverse is rejected.
	if s.cfg.VocabPath != "" {
		if err := v.Save(s.cfg.VocabPath); err != nil {
			return false, err
		}
	}
	if s.cfg.ModelPath != "" {
		if err := checkpoint.Save(s.cfg.ModelPath, m); err != nil {
			return false, err
		}
	}
	s.model, s.vocab = m, v
	return s.cfg.ModelPath != "" && s.cfg.VocabPath != "", nil
}

func (s *ModelStore) Config() ModelStoreConfig { return s.cfg }
