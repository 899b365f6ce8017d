package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/radiocast/radio/internal/app"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Radio().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("radio failed")
		stop()
		os.Exit(1)
	}
}
