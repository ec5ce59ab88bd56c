package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/JaimeStill/glimpse/internal/app"
	"github.com/JaimeStill/glimpse/internal/capture"
	"github.com/JaimeStill/glimpse/internal/classifier"
	"github.com/JaimeStill/glimpse/internal/client"
	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/pkg/broker"
)

func main() {
	var (
		debug    = flag.Bool("debug", false, "Enable debug logging")
		input    = flag.String("input", "", "Camera device, file, or stream URL (overrides config)")
		server   = flag.String("server", "", "Server URL (overrides config)")
		noBroker = flag.Bool("no-broker", false, "Disable MQTT result publishing")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)

	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal("config load failed:", err)
	}
	if *input != "" {
		cfg.Capture.Input = *input
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *noBroker {
		cfg.Broker.URL = ""
	}

	if err := run(cfg, logger); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(cfg.ServerURL, cfg.APIBasePath, cfg.RequestTimeoutDuration(), logger)
	if err != nil {
		return fmt.Errorf("client init failed: %w", err)
	}

	worker := classifier.New(&cfg.Classifier, logger)
	if err := worker.Start(ctx); err != nil {
		logger.Warn("classifier unavailable, retrying on first frame", "error", err)
	}
	defer worker.Stop()

	var publisher app.Publisher
	if cfg.Broker.Enabled() {
		p := broker.New(&cfg.Broker, logger)
		if err := p.Connect(); err != nil {
			logger.Warn("broker unavailable, results will not be published", "error", err)
		}
		defer p.Close()
		publisher = p
	}

	source := capture.NewSource(&cfg.Capture, logger)

	logger.Info(
		"glimpse device starting",
		"device_id", cfg.DeviceID,
		"server", cfg.ServerURL,
		"input", cfg.Capture.Input,
	)

	a := app.New(cfg, api, worker, source, publisher, os.Stdout, logger)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, os.Stdin) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("app stopped: %w", err)
		}
	case <-ctx.Done():
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("app stopped: %w", err)
			}
		case <-time.After(cfg.ShutdownTimeoutDuration()):
			logger.Warn("shutdown timed out", "timeout", cfg.ShutdownTimeoutDuration())
		}
	}

	logger.Info("glimpse device stopped")
	return nil
}
