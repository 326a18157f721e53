package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/gxvtx/gxvtx/internal/api"
	"github.com/gxvtx/gxvtx/internal/batch"
	"github.com/gxvtx/gxvtx/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP inspection API",
		Flags: append(ramFlags(),
			watchFlag(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8090",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, LoadConfig(), &addr)

			mem, err := openMemory(log, watchRAM)
			if err != nil {
				return err
			}
			defer func() { _ = mem.Close() }()

			session := api.NewSession(api.SessionConfig{
				Logger:  log,
				Memory:  mem.translator,
				Backend: &batch.NullBackend{},
			})
			if watchRAM {
				w, err := mem.watch(log, session.NotifyMemoryChanged)
				if err != nil {
					return err
				}
				if w != nil {
					defer func() { _ = w.Close() }()
				}
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(session).Register(e)
			log.Info("starting server", "address", addr, "session", session.ID())
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
