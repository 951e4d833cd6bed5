package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beam-cloud/xtmsplit/pkg/commands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.RootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("xtm failed")
		stop()
		os.Exit(1)
	}
}
