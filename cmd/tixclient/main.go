package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kirinyoku/tix-client/internal/app"
	"github.com/kirinyoku/tix-client/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	addr := pflag.String("addr", "", "listen address host:port, overrides SERVER_HOST/SERVER_PORT")
	pflag.Parse()

	cfg, err := config.New(*envFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *addr != "" {
		if err := cfg.Server.Override(*addr); err != nil {
			slog.Error("invalid --addr", "error", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level}))

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
