package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/cmd/uav/app"
	"github.com/Arrsahzyy/Proyek-TD-KRTI-2025-WEB-sub000/internal/console"
)

func main() {
	var configFile string

	flag.StringVar(&configFile, "c", "", "path to the configuration file")
	flag.Parse()

	cfg := app.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = app.LoadConfig(configFile); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}

	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(cfg.Settings.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "Error: invalid log level:", cfg.Settings.LogLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One reader for the process lifetime: engine restarts must not lose
	// operator input to an abandoned pump.
	lines := console.NewLineReader(os.Stdin, os.Stdout)

	for {
		err := app.Run(ctx, cfg, lines, logger)
		if errors.Is(err, app.ErrRestartRequested) {
			logger.Info("engine restarting")
			continue
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err.Error())
			os.Exit(1)
		}
		return
	}
}
