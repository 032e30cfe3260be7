package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/checkpoint"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

func growCmd() *cli.Command {
	var (
		to   int64
		out  string
		seed int64
	)

	return &cli.Command{
		Name:  "grow",
		Usage: "Widen a checkpoint to a larger vocabulary, keeping trained weights",
		Flags: append(modelFlags(),
			&cli.Int64Flag{
				Name:        "to",
				Usage:       "target vocabulary size (defaults to the size of --vocab)",
				Destination: &to,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output checkpoint path (defaults to overwriting --model)",
				Destination: &out,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for the new weight rows",
				Value:       42,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd)

			be, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = be.Close() }()

			m, err := checkpoint.Load(modelPath, be)
			if err != nil {
				return err
			}

			target := int(to)
			if !cmd.IsSet("to") {
				v, err := vocab.Load(vocabPath)
				if err != nil {
					return err
				}
				target = v.Size()
			}
			if target == m.VocabSize() {
				log.Info("checkpoint already matches vocabulary", "vocab_size", target)
				return nil
			}

			grown, err := lstm.Grow(m, target, seed)
			if err != nil {
				return err
			}
			if out == "" {
				out = modelPath
			}
			if err := checkpoint.Save(out, grown); err != nil {
				return err
			}
			log.Info("grew checkpoint", "from", m.VocabSize(), "to", grown.VocabSize(), "path", out)
			fmt.Printf("vocabulary %d -> %d, saved %s\n", m.VocabSize(), grown.VocabSize(), out)
			return nil
		},
	}
}
