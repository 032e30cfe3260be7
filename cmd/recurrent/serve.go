package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/recurrent/internal/api"
	"github.com/samcharles93/recurrent/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		noPersist   bool
		seed        int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the prediction, generation and training REST API",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.BoolFlag{
				Name:        "no-persist",
				Usage:       "keep weights trained through the API in memory only",
				Destination: &noPersist,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for weight rows added when training grows the vocabulary",
				Value:       42,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd)
			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
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
			storeCfg := api.ModelStoreConfig{Seed: seed}
			if !noPersist {
				storeCfg.ModelPath = modelPath
				storeCfg.VocabPath = vocabPath
			}
			store, err := api.NewModelStore(m, v, storeCfg)
			if err != nil {
				return err
			}

			server := api.NewServer(store, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server",
				"address", addr,
				"model", modelPath,
				"vocab_size", v.Size(),
				"backend", be.Name(),
			)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
