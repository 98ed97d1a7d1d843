package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/codekeeper/internal/app"
	"github.com/MikhailRaia/codekeeper/internal/config"
	"github.com/MikhailRaia/codekeeper/internal/logger"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser, err := logger.InitLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Error running application")
		os.Exit(1)
	}
}
