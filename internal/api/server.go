// Package api exposes a model over HTTP using echo.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/recurrent/internal/generate"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/logits"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/trainer"
	"github.com/samcharles93/recurrent/internal/vocab"
)

// Request limits.
const (
	DefaultTop          = 5
	DefaultMaxTokens    = 32
	MaxGenerateTokens   = 1024
	DefaultTrainEpochs  = 1
	MaxTrainEpochs      = 500
	DefaultLearningRate = 0.01
)

type Server struct {
	store *ModelStore
	log   logger.Logger
	clock func() time.Time
}

func NewServer(store *ModelStore, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		store: store,
		log:   log.With("component", "api"),
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/predict", s.handlePredict)
	e.POST("/v1/generate", s.handleGenerate)
	e.POST("/v1/train", s.handleTrain)
}

func (s *Server) handleModel(c *echo.Context) error {
	var info ModelInfo
	err := s.store.With(c.Request().Context(), func(m *lstm.Model, _ *vocab.Vocabulary) error {
		info = ModelInfo{
			Object:        "model",
			VocabSize:     m.VocabSize(),
			HiddenSize:    m.HiddenSize(),
			ContextWindow: m.ContextWindow(),
			InputSize:     m.InputSize(),
			Backend:       m.Backend().Name(),
			ModelPath:     s.store.Config().ModelPath,
		}
		return nil
	})
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handlePredict(c *echo.Context) error {
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	top := valueOr(req.Top, DefaultTop)
	if top <= 0 {
		return writeBadRequest(c, "top must be positive")
	}

	resp := PredictResponse{Object: "prediction"}
	err = s.store.With(c.Request().Context(), func(m *lstm.Model, v *vocab.Vocabulary) error {
		g, err := generate.New(m, v, nil)
		if err != nil {
			return err
		}
		resp.Candidates, resp.Dropped, err = g.Predict(req.Text, top)
		return err
	})
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGenerate(c *echo.Context) error {
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := validateGenerate(&req); err != nil {
		return writeBadRequest(c, err.Error())
	}

	sampler := logits.NewSampler(logits.SamplerConfig{
		Seed:        valueOr(req.Seed, s.clock().UnixNano()),
		Temperature: valueOr(req.Temperature, 0),
		TopK:        valueOr(req.TopK, 0),
		TopP:        valueOr(req.TopP, 0),
	})

	var res *generate.Result
	err = s.store.With(c.Request().Context(), func(m *lstm.Model, v *vocab.Vocabulary) error {
		g, err := generate.New(m, v, sampler)
		if err != nil {
			return err
		}
		res, err = g.Generate(c.Request().Context(), req.Prompt, valueOr(req.MaxTokens, DefaultMaxTokens))
		return err
	})
	if err != nil {
		return writeServerError(c, err)
	}

	promptTokens := len(vocab.SplitDataset(req.Prompt)) - len(res.Dropped)
	resp := GenerateResponse{
		ID:        newGenerationID(),
		Object:    "generation",
		CreatedAt: s.clock().Unix(),
		Text:      res.Text,
		Tokens:    res.Tokens,
		Dropped:   res.Dropped,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: len(res.Tokens),
		},
	}
	s.log.Debug("generated", "id", resp.ID, "tokens", len(res.Tokens), "elapsed", res.Stats.Duration)
	return c.JSON(http.StatusOK, resp)
}

func validateGenerate(req *GenerateRequest) error {
	if n := valueOr(req.MaxTokens, DefaultMaxTokens); n < 0 || n > MaxGenerateTokens {
		return newInvalidRequest(fmt.Sprintf("max_tokens must be in [0, %d]", MaxGenerateTokens))
	}
	if k := valueOr(req.TopK, 0); k < 0 {
		return newInvalidRequest("top_k must not be negative")
	}
	if p := valueOr(req.TopP, 1); p < 0 || p > 1 {
		return newInvalidRequest("top_p must be in [0, 1]")
	}
	return nil
}

func (s *Server) handleTrain(c *echo.Context) error {
	req, err := decodeJSON[TrainRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Text == "" {
		return writeBadRequest(c, "text is required")
	}
	epochs := valueOr(req.Epochs, DefaultTrainEpochs)
	if epochs <= 0 || epochs > MaxTrainEpochs {
		return writeBadRequest(c, fmt.Sprintf("epochs must be in [1, %d]", MaxTrainEpochs))
	}
	lr := valueOr(req.LearningRate, DefaultLearningRate)
	if lr <= 0 {
		return writeBadRequest(c, "learning_rate must be positive")
	}

	var res *trainer.TextResult
	saved, err := s.store.Update(c.Request().Context(), func(m *lstm.Model, v *vocab.Vocabulary) (*lstm.Model, *vocab.Vocabulary, error) {
		var err error
		res, err = trainer.TrainText(c.Request().Context(), m, v, req.Text, epochs, lr, s.store.Config().Seed)
		if errors.Is(err, lstm.ErrNoExamples) {
			return nil, nil, newInvalidRequest("text yields no training windows")
		}
		if err != nil {
			return nil, nil, err
		}
		return res.Model, res.Vocabulary, nil
	})
	if err != nil {
		return writeServerError(c, err)
	}

	resp := TrainResponse{
		ID:          newTrainingID(),
		Object:      "training",
		CreatedAt:   s.clock().Unix(),
		Losses:      res.Losses,
		VocabSize:   res.Vocabulary.Size(),
		AddedTokens: res.Added,
		Saved:       saved,
	}
	s.log.Info("trained", "id", resp.ID, "epochs", epochs, "loss", res.Losses[len(res.Losses)-1], "vocab", resp.VocabSize)
	return c.JSON(http.StatusOK, resp)
}
