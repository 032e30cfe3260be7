package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/generate"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/logits"
	"github.com/samcharles93/recurrent/internal/vocab"
)

func generateCmd() *cli.Command {
	var (
		prompt        string
		steps         int64
		temp          float64
		topK          int64
		topP          float64
		minP          float64
		repeatPenalty float64
		repeatLastN   int64
		seed          int64
		echoPrompt    bool
		showStats     bool
	)

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate text from a prompt",
		ArgsUsage: "[prompt]",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text (defaults to the positional arguments)",
				Destination: &prompt,
			},
			&cli.Int64Flag{
				Name:        "steps",
				Aliases:     []string{"n", "max-tokens"},
				Usage:       "number of tokens to generate",
				Value:       32,
				Destination: &steps,
			},
			&cli.FloatFlag{
				Name:        "temperature",
				Aliases:     []string{"temp"},
				Usage:       "sampling temperature (0 = greedy)",
				Value:       0.8,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Usage:       "sample from the k most likely tokens",
				Value:       40,
				Destination: &topK,
			},
			&cli.FloatFlag{
				Name:        "top-p",
				Usage:       "nucleus sampling threshold (1 = disabled)",
				Value:       0.95,
				Destination: &topP,
			},
			&cli.FloatFlag{
				Name:        "min-p",
				Usage:       "minimum probability relative to the best token (0 = disabled)",
				Destination: &minP,
			},
			&cli.FloatFlag{
				Name:        "repeat-penalty",
				Usage:       "penalty for recently generated tokens (1 = disabled)",
				Value:       1.1,
				Destination: &repeatPenalty,
			},
			&cli.Int64Flag{
				Name:        "repeat-last-n",
				Usage:       "window of recent tokens the repeat penalty applies to",
				Value:       16,
				Destination: &repeatLastN,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling seed (-1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "echo-prompt",
				Usage:       "print the prompt before the generated text",
				Destination: &echoPrompt,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "log generation statistics",
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd)
			applySamplerConfig(cmd, &temp, &topK, &topP)
			if steps < 0 {
				return fmt.Errorf("generate: --steps must not be negative")
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
			if seed < 0 {
				seed = time.Now().UnixNano()
			}
			sampler := logits.NewSampler(logits.SamplerConfig{
				Seed:          seed,
				Temperature:   temp,
				TopK:          int(topK),
				TopP:          topP,
				MinP:          minP,
				RepeatPenalty: repeatPenalty,
				RepeatLastN:   int(repeatLastN),
			})
			g, err := generate.New(m, v, sampler)
			if err != nil {
				return err
			}

			input := textArg(cmd, prompt)
			ids, dropped := v.EncodeKnown(input)
			if len(dropped) > 0 {
				log.Warn("ignoring unknown prompt tokens", "tokens", dropped)
			}

			out := bufio.NewWriter(os.Stdout)
			defer func() { _ = out.Flush() }()

			prev := ""
			if echoPrompt {
				text, err := v.Decode(ids)
				if err != nil {
					return err
				}
				_, _ = out.WriteString(text)
				if len(ids) > 0 {
					prev, _ = v.Token(ids[len(ids)-1])
				}
			}
			_, stats, err := g.RunWithContext(ctx, ids, int(steps), func(tok string) {
				if vocab.NeedsSpace(prev, tok) {
					_ = out.WriteByte(' ')
				}
				_, _ = out.WriteString(tok)
				_ = out.Flush()
				prev = tok
			})
			_, _ = out.WriteString("\n")
			if err != nil {
				return err
			}
			if showStats {
				log.Info("generation complete",
					"tokens", stats.TokensGenerated,
					"duration", stats.Duration,
					"tps", stats.TPS,
				)
			}
			return nil
		},
	}
}

// applySamplerConfig applies config file defaults to sampling flags when the
// corresponding CLI flag was not explicitly set.
func applySamplerConfig(c *cli.Command, temp *float64, topK *int64, topP *float64) {
	if cfg.Temperature != nil && !c.IsSet("temperature") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		*topP = *cfg.TopP
	}
}
