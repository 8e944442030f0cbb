package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"foryou/internal/bootstrap"
	"foryou/internal/config"
	"foryou/internal/logger"
	"foryou/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging, "foryou")
	hub := web.NewHub(log)
	app := NewApp(hub, log)

	services, err := bootstrap.Build(cfg, app, log)
	if err != nil {
		return err
	}
	app.attach(services)

	srv, err := web.NewServer(web.Config{
		Addr:              cfg.Server.Addr(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Debug:             log.DebugEnabled(),
	}, app, services.Feed, hub, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", map[string]interface{}{
		logger.FieldLocale: cfg.Speech.Locale,
		"fallback_locale":  cfg.Speech.FallbackLocale,
		"model":            cfg.Deepgram.Model,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		app.shutdown()
		return nil
	})
	return g.Wait()
}
