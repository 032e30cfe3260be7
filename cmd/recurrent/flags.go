package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/logger"
)

const envModelPath = "RECURRENT_MODEL"

var (
	modelPath   string
	vocabPath   string
	backendName string
	workers     int64
	logLevel    string
	logFormat   string
	debug       bool

	cfg Config
)

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the model checkpoint (JSON)",
			Value:       "model.json",
			Sources:     cli.EnvVars(envModelPath),
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "vocab",
			Usage:       "path to the vocabulary file (one token per line)",
			Value:       "vocab.txt",
			Destination: &vocabPath,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "gate evaluation backend (" + backend.Auto + ", " + backend.Available() + ")",
			Value:       backend.Auto,
			Destination: &backendName,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "worker count for the parallel backend (0 = GOMAXPROCS)",
			Destination: &workers,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       logger.FormatPretty,
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setupLogging loads the config file and installs the logger into the
// context shared by every subcommand.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	loaded, err := LoadConfig()
	if err != nil {
		return ctx, err
	}
	cfg = loaded
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if debug {
		logLevel = "debug"
	}

	log, err := logger.NewFormat(os.Stderr, logFormat, logger.ParseLevel(logLevel))
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// applyModelConfig applies config file defaults to the shared model flags
// when the corresponding CLI flag was not explicitly set.
func applyModelConfig(c *cli.Command) {
	if cfg.ModelPath != "" && !c.IsSet("model") {
		modelPath = cfg.ModelPath
	}
	if cfg.VocabPath != "" && !c.IsSet("vocab") {
		vocabPath = cfg.VocabPath
	}
	if cfg.Backend != "" && !c.IsSet("backend") {
		backendName = cfg.Backend
	}
}

func openBackend() (backend.Backend, error) {
	return backend.New(backendName, int(workers))
}
