// Package trainer drives training runs: it prepares the vocabulary, loads or
// initialises the model, and trains over a dataset file in line chunks.
package trainer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samcharles93/recurrent/internal/checkpoint"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

// ErrDataset reports a missing, unreadable or badly encoded dataset.
var ErrDataset = errors.New("trainer: bad dataset")

// Trainer owns one model and vocabulary for the duration of a run.
type Trainer struct {
	cfg   Config
	log   logger.Logger
	vocab *vocab.Vocabulary
	model *lstm.Model
}

// New validates cfg. No files are touched until Run.
func New(cfg Config) (*Trainer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Trainer{cfg: cfg, log: log.With("component", "trainer")}, nil
}

// Model returns the trained model, or nil before Prepare.
func (t *Trainer) Model() *lstm.Model { return t.model }

// Vocabulary returns the active vocabulary, or nil before Prepare.
func (t *Trainer) Vocabulary() *vocab.Vocabulary { return t.vocab }

// Run prepares the vocabulary and model, then trains epochs StartEpoch
// through Epochs. The model is checkpointed after every epoch. It returns the
// mean chunk loss of each completed epoch. Cancellation is observed between
// chunks, so a chunk in progress always finishes.
func (t *Trainer) Run(ctx context.Context) ([]float64, error) {
	if err := t.Prepare(); err != nil {
		return nil, err
	}

	var losses []float64
	for epoch := t.cfg.StartEpoch; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		loss, chunks, err := t.epoch(ctx, epoch)
		if err != nil {
			return losses, err
		}
		if chunks == 0 {
			return losses, fmt.Errorf("%w: %s yields no training windows", lstm.ErrNoExamples, t.cfg.DatasetPath)
		}
		losses = append(losses, loss)
		t.log.Info("epoch complete",
			"epoch", epoch,
			"epochs", t.cfg.Epochs,
			"loss", loss,
			"chunks", chunks,
			"vocab", t.vocab.Size(),
			"elapsed", time.Since(start),
		)
		if err := checkpoint.Save(t.cfg.ModelPath, t.model); err != nil {
			return losses, err
		}
	}
	return losses, nil
}

// Prepare validates the dataset and readies the vocabulary and model. Run
// calls it; it is exported for callers that only want the setup.
func (t *Trainer) Prepare() error {
	if err := validateDataset(t.cfg.DatasetPath); err != nil {
		return err
	}
	if err := t.prepareVocabulary(); err != nil {
		return err
	}
	return t.prepareModel()
}

func (t *Trainer) prepareVocabulary() error {
	tokens, err := datasetTokens(t.cfg.DatasetPath)
	if err != nil {
		return err
	}

	v, err := vocab.Load(t.cfg.VocabPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		t.log.Info("no vocabulary found, building from dataset", "path", t.cfg.VocabPath)
		v = vocab.Build(tokens)
	case errors.Is(err, vocab.ErrEmpty):
		t.log.Warn("vocabulary is empty, rebuilding from dataset", "path", t.cfg.VocabPath)
		v = vocab.Build(tokens)
	case err != nil:
		return err
	default:
		if added := v.Extend(tokens); added > 0 {
			t.log.Info("vocabulary extended", "added", added, "size", v.Size())
		}
	}
	if v.Size() <= 1 {
		return fmt.Errorf("%w: %s", vocab.ErrEmpty, t.cfg.DatasetPath)
	}
	if err := v.Save(t.cfg.VocabPath); err != nil {
		return err
	}
	t.vocab = v
	t.log.Debug("vocabulary ready", "size", v.Size())
	return nil
}

func (t *Trainer) prepareModel() error {
	fresh := func() error {
		m, err := lstm.New(lstm.Config{
			VocabSize:     t.vocab.Size(),
			HiddenSize:    t.cfg.HiddenSize,
			ContextWindow: t.cfg.ContextWindow,
			Seed:          t.cfg.Seed,
			Backend:       t.cfg.Backend,
		})
		if err != nil {
			return err
		}
		t.model = m
		return nil
	}

	m, err := checkpoint.Load(t.cfg.ModelPath, t.cfg.Backend)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		t.log.Info("no model found, initialising", "path", t.cfg.ModelPath)
		return fresh()
	case err != nil:
		t.log.Warn("model could not be loaded, initialising", "path", t.cfg.ModelPath, "error", err)
		return fresh()
	}

	if m.HiddenSize() != t.cfg.HiddenSize || m.ContextWindow() != t.cfg.ContextWindow {
		t.log.Warn("model shape differs from config, initialising",
			"hidden", m.HiddenSize(), "want_hidden", t.cfg.HiddenSize,
			"window", m.ContextWindow(), "want_window", t.cfg.ContextWindow)
		return fresh()
	}
	fitted, err := Fit(m, t.vocab, t.cfg.Seed)
	if err != nil {
		t.log.Warn("model does not match vocabulary, initialising", "error", err)
		return fresh()
	}
	if fitted != m {
		t.log.Info("model grown to vocabulary", "from", m.VocabSize(), "to", fitted.VocabSize())
	}
	t.model = fitted
	return nil
}

// Fit returns m sized for v: m itself when sizes agree, or a grown copy when
// the vocabulary has gained tokens since m was trained.
func Fit(m *lstm.Model, v *vocab.Vocabulary, seed int64) (*lstm.Model, error) {
	switch {
	case m.VocabSize() == v.Size():
		return m, nil
	case m.VocabSize() < v.Size():
		return lstm.Grow(m, v.Size(), seed)
	default:
		return nil, fmt.Errorf("%w: model vocabulary %d exceeds vocabulary %d", lstm.ErrDimension, m.VocabSize(), v.Size())
	}
}

func (t *Trainer) epoch(ctx context.Context, epoch int) (float64, int, error) {
	f, err := os.Open(t.cfg.DatasetPath)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	defer func() { _ = f.Close() }()

	var (
		total  float64
		chunks int
		index  int
	)
	err = readChunks(f, t.cfg.ChunkSize, func(text string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		index++
		examples, skipped, err := t.vocab.Examples(text, t.cfg.ContextWindow)
		if err != nil {
			return err
		}
		if len(examples) == 0 {
			t.log.Debug("chunk has no usable windows", "epoch", epoch, "chunk", index, "skipped", skipped)
			return nil
		}
		loss, err := t.model.TrainEpoch(examples, t.cfg.LearningRate)
		if err != nil {
			return fmt.Errorf("epoch %d chunk %d: %w", epoch, index, err)
		}
		total += loss
		chunks++
		t.log.Debug("chunk trained",
			"epoch", epoch,
			"chunk", index,
			"examples", len(examples),
			"skipped", skipped,
			"loss", loss,
		)
		return nil
	})
	if err != nil {
		return 0, chunks, err
	}
	if chunks == 0 {
		return 0, 0, nil
	}
	return total / float64(chunks), chunks, nil
}

// readChunks calls fn with up to size non-empty lines joined by newlines.
func readChunks(f *os.File, size int, fn func(string) error) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	lines := make([]string, 0, size)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == size {
			if err := fn(strings.Join(lines, "\n")); err != nil {
				return err
			}
			lines = lines[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDataset, err)
	}
	if len(lines) > 0 {
		return fn(strings.Join(lines, "\n"))
	}
	return nil
}

// validateDataset rejects a missing file and any file that is not clean
// UTF-8 or already contains replacement characters.
func validateDataset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataset, err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrDataset, path)
	}
	if bytes.ContainsRune(data, utf8.RuneError) {
		return fmt.Errorf("%w: %s contains U+FFFD replacement characters", ErrDataset, path)
	}
	return nil
}

func datasetTokens(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	return vocab.SplitVocabulary(string(data)), nil
}
