package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/whisperwall/whisperwall/cmd/whisperwall/adduser"
	"github.com/whisperwall/whisperwall/cmd/whisperwall/audit"
	"github.com/whisperwall/whisperwall/cmd/whisperwall/serve"
)

func main() {
	app := &cli.App{
		Name:  "whisperwall",
		Usage: "Share your secrets with everyone, anonymously!",
		Commands: []*cli.Command{
			serve.Cmd(),
			adduser.Cmd(),
			audit.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
