package trainer

import (
	"errors"
	"fmt"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/logger"
)

// ErrConfig reports an unusable trainer configuration.
var ErrConfig = errors.New("trainer: invalid config")

// Defaults applied by Config.withDefaults.
const (
	DefaultHiddenSize    = 64
	DefaultContextWindow = 4
	DefaultLearningRate  = 0.01
	DefaultEpochs        = 10
	DefaultChunkSize     = 1000
)

// Config drives a training run over a dataset file.
type Config struct {
	DatasetPath string
	ModelPath   string
	VocabPath   string

	HiddenSize    int
	ContextWindow int
	LearningRate  float64
	Epochs        int
	// StartEpoch resumes numbering; epochs StartEpoch..Epochs are run.
	StartEpoch int
	// ChunkSize is the number of dataset lines trained per TrainEpoch call.
	ChunkSize int
	Seed      int64

	// Backend is passed to every model the trainer creates or loads.
	Backend backend.Backend
	Logger  logger.Logger
}

func (c Config) withDefaults() Config {
	if c.HiddenSize == 0 {
		c.HiddenSize = DefaultHiddenSize
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = DefaultContextWindow
	}
	if c.LearningRate == 0 {
		c.LearningRate = DefaultLearningRate
	}
	if c.Epochs == 0 {
		c.Epochs = DefaultEpochs
	}
	if c.StartEpoch == 0 {
		c.StartEpoch = 1
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	var errs []error
	if c.DatasetPath == "" {
		errs = append(errs, errors.New("dataset path is required"))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	if c.VocabPath == "" {
		errs = append(errs, errors.New("vocabulary path is required"))
	}
	if c.HiddenSize <= 0 {
		errs = append(errs, fmt.Errorf("hidden size %d must be positive", c.HiddenSize))
	}
	if c.ContextWindow <= 0 {
		errs = append(errs, fmt.Errorf("context window %d must be positive", c.ContextWindow))
	}
	if c.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning rate %g must be positive", c.LearningRate))
	}
	if c.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("epochs %d must be positive", c.Epochs))
	}
	if c.StartEpoch <= 0 || c.StartEpoch > c.Epochs {
		errs = append(errs, fmt.Errorf("start epoch %d must be in [1, %d]", c.StartEpoch, c.Epochs))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size %d must be positive", c.ChunkSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return nil
}
