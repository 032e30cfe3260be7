package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/generate"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/logits"
)

func predictCmd() *cli.Command {
	var (
		text string
		top  int64
	)

	return &cli.Command{
		Name:      "predict",
		Usage:     "Show the most likely next tokens for a text",
		ArgsUsage: "[text]",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "text",
				Aliases:     []string{"t"},
				Usage:       "input text (defaults to the positional arguments)",
				Destination: &text,
			},
			&cli.Int64Flag{
				Name:        "top",
				Aliases:     []string{"n"},
				Usage:       "number of candidates to show",
				Value:       5,
				Destination: &top,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd)

			input := textArg(cmd, text)
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("predict: no input text")
			}
			if top <= 0 {
				return fmt.Errorf("predict: --top must be positive")
			}

			be, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = be.Close() }()

			m, v, err := loadModel(be)
			if err != nil {
				return err
			}
			g, err := generate.New(m, v, logits.NewSampler(logits.SamplerConfig{}))
			if err != nil {
				return err
			}
			candidates, dropped, err := g.Predict(input, int(top))
			if err != nil {
				return err
			}
			if len(dropped) > 0 {
				log.Warn("ignoring unknown tokens", "tokens", dropped)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "RANK\tTOKEN\tPROBABILITY")
			for i, c := range candidates {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, c.Token, c.Probability)
			}
			return tw.Flush()
		},
	}
}
