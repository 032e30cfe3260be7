// Package lstm implements a single-layer LSTM sequence model with a linear
// output head, trained by backpropagation through time over a fixed window.
package lstm

import (
	"fmt"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/tensor"
)

// Config describes the dimensions of a model.
type Config struct {
	VocabSize     int
	HiddenSize    int
	ContextWindow int
	// Seed drives weight initialisation.
	Seed int64
	// Backend evaluates gate activations. Nil selects the CPU backend.
	// The model does not close it.
	Backend backend.Backend
}

func (c Config) validate() error {
	if c.VocabSize <= 0 || c.HiddenSize <= 0 || c.ContextWindow <= 0 {
		return fmt.Errorf("%w: vocab=%d hidden=%d window=%d", ErrConfig, c.VocabSize, c.HiddenSize, c.ContextWindow)
	}
	return nil
}

// Model is a sequence model that predicts the next token of a window of
// one-hot encoded tokens. It is not safe for concurrent use.
type Model struct {
	vocab   int
	hidden  int
	window  int
	params  *Params
	backend backend.Backend
}

// New allocates a model with freshly initialised weights.
func New(cfg Config) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newModel(cfg, initParams(cfg.VocabSize, cfg.HiddenSize, cfg.Seed)), nil
}

// FromParams builds a model around existing weights, which it takes ownership of.
func FromParams(cfg Config, p *Params) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil params", ErrDimension)
	}
	if err := p.Validate(cfg.VocabSize, cfg.HiddenSize); err != nil {
		return nil, err
	}
	return newModel(cfg, p), nil
}

func newModel(cfg Config, p *Params) *Model {
	be := cfg.Backend
	if be == nil {
		be = backend.NewCPU()
	}
	return &Model{
		vocab:   cfg.VocabSize,
		hidden:  cfg.HiddenSize,
		window:  cfg.ContextWindow,
		params:  p,
		backend: be,
	}
}

func (m *Model) VocabSize() int     { return m.vocab }
func (m *Model) HiddenSize() int    { return m.hidden }
func (m *Model) ContextWindow() int { return m.window }

// InputSize is the flattened window length, VocabSize * ContextWindow.
func (m *Model) InputSize() int { return m.vocab * m.window }

// OutputSize equals VocabSize.
func (m *Model) OutputSize() int { return m.vocab }

// Params exposes the live weights. Mutating them changes the model.
func (m *Model) Params() *Params { return m.params }

func (m *Model) Backend() backend.Backend { return m.backend }

// Config returns the model's dimensions and backend.
func (m *Model) Config() Config {
	return Config{
		VocabSize:     m.vocab,
		HiddenSize:    m.hidden,
		ContextWindow: m.window,
		Backend:       m.backend,
	}
}

// ForwardLogits runs the recurrence over window and returns the
// pre-softmax scores of the next token.
func (m *Model) ForwardLogits(window tensor.Tensor) (tensor.Tensor, error) {
	trace, err := m.trace(window)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return m.project(trace[len(trace)-1].H)
}

// Forward returns the next-token probability distribution for window.
func (m *Model) Forward(window tensor.Tensor) (tensor.Tensor, error) {
	logits, err := m.ForwardLogits(window)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Softmax(logits), nil
}

// Predict is Forward over a plain slice.
func (m *Model) Predict(window []float64) ([]float64, error) {
	w, err := m.windowTensor(window)
	if err != nil {
		return nil, err
	}
	probs, err := m.Forward(w)
	if err != nil {
		return nil, err
	}
	return probs.Data(), nil
}

// PredictLogits is ForwardLogits over a plain slice.
func (m *Model) PredictLogits(window []float64) ([]float64, error) {
	w, err := m.windowTensor(window)
	if err != nil {
		return nil, err
	}
	logits, err := m.ForwardLogits(w)
	if err != nil {
		return nil, err
	}
	return logits.Data(), nil
}

func (m *Model) windowTensor(window []float64) (tensor.Tensor, error) {
	if len(window) != m.InputSize() {
		return tensor.Tensor{}, fmt.Errorf("%w: window has %d values, want %d", ErrDimension, len(window), m.InputSize())
	}
	return tensor.Vector(window...), nil
}

// project applies the linear head: h·W_out + b_out.
func (m *Model) project(h tensor.Tensor) (tensor.Tensor, error) {
	hw, err := tensor.MatMul(h, m.params.Wout)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("output projection: %w", err)
	}
	return tensor.Add(hw, m.params.Bout)
}
