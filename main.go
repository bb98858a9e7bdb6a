package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dnldd/screener/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// run loads the configuration and runs the screener until it terminates.
func run() error {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	settings, err := cfg.AnalysisSettings()
	if err != nil {
		return fmt.Errorf("resolving analysis settings: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screener, err := service.NewScreener(ctx, &service.ScreenerConfig{
		Analysis:     settings,
		NoFetch:      cfg.NoFetch,
		DataFilepath: cfg.DataFilepath,
		BinanceURL:   cfg.BinanceURL,
		ExportJSON:   cfg.ExportJSON,
		Output:       cfg.Output,
		DBEndpoint:   cfg.DBEndpoint,
		DBUser:       cfg.DBUser,
		DBPass:       cfg.DBPass,
		Interval:     cfg.Interval,
		MetricsAddr:  cfg.MetricsAddr,
		Cancel:       cancel,
	})
	if err != nil {
		return fmt.Errorf("creating screener service: %w", err)
	}

	go handleTermination(ctx, cancel)
	screener.Run(ctx)

	return nil
}

func main() {
	err := run()
	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
