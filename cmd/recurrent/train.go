package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/trainer"
)

func trainCmd() *cli.Command {
	var (
		dataset       string
		hiddenSize    int64
		contextWindow int64
		learningRate  float64
		epochs        int64
		startEpoch    int64
		chunkSize     int64
		seed          int64
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train a model on a text dataset, resuming from an existing checkpoint",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "dataset",
				Aliases:     []string{"d"},
				Usage:       "path to the UTF-8 training text",
				Required:    true,
				Destination: &dataset,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "hidden state size",
				Value:       trainer.DefaultHiddenSize,
				Destination: &hiddenSize,
			},
			&cli.Int64Flag{
				Name:        "window",
				Aliases:     []string{"context-window"},
				Usage:       "tokens per input window",
				Value:       trainer.DefaultContextWindow,
				Destination: &contextWindow,
			},
			&cli.FloatFlag{
				Name:        "lr",
				Aliases:     []string{"learning-rate"},
				Usage:       "learning rate",
				Value:       trainer.DefaultLearningRate,
				Destination: &learningRate,
			},
			&cli.Int64Flag{
				Name:        "epochs",
				Usage:       "last epoch to train",
				Value:       trainer.DefaultEpochs,
				Destination: &epochs,
			},
			&cli.Int64Flag{
				Name:        "start-epoch",
				Usage:       "first epoch to train (for resumed runs)",
				Value:       1,
				Destination: &startEpoch,
			},
			&cli.Int64Flag{
				Name:        "chunk-size",
				Usage:       "dataset lines per training chunk",
				Value:       trainer.DefaultChunkSize,
				Destination: &chunkSize,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "weight initialisation seed",
				Value:       42,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd)
			applyTrainConfig(cmd, &hiddenSize, &contextWindow, &learningRate, &epochs, &chunkSize, &seed)

			be, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = be.Close() }()

			tr, err := trainer.New(trainer.Config{
				DatasetPath:   dataset,
				ModelPath:     modelPath,
				VocabPath:     vocabPath,
				HiddenSize:    int(hiddenSize),
				ContextWindow: int(contextWindow),
				LearningRate:  learningRate,
				Epochs:        int(epochs),
				StartEpoch:    int(startEpoch),
				ChunkSize:     int(chunkSize),
				Seed:          seed,
				Backend:       be,
				Logger:        log,
			})
			if err != nil {
				return err
			}

			log.Info("training", "dataset", dataset, "model", modelPath, "backend", be.Name())
			losses, err := tr.Run(ctx)
			if err != nil {
				return err
			}
			if len(losses) > 0 {
				fmt.Printf("trained %d epochs, final loss %.4f, vocabulary %d tokens\n",
					len(losses), losses[len(losses)-1], tr.Vocabulary().Size())
			}
			return nil
		},
	}
}

// applyTrainConfig applies config file defaults to train command variables
// when the corresponding CLI flag was not explicitly set.
func applyTrainConfig(c *cli.Command,
	hidden, window *int64, lr *float64, epochs, chunk, seed *int64,
) {
	if cfg.HiddenSize != nil && !c.IsSet("hidden") {
		*hidden = *cfg.HiddenSize
	}
	if cfg.ContextWindow != nil && !c.IsSet("window") {
		*window = *cfg.ContextWindow
	}
	if cfg.LearningRate != nil && !c.IsSet("lr") {
		*lr = *cfg.LearningRate
	}
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		*epochs = *cfg.Epochs
	}
	if cfg.ChunkSize != nil && !c.IsSet("chunk-size") {
		*chunk = *cfg.ChunkSize
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}
