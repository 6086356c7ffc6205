package audit

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/whisperwall/whisperwall/internal/cmdflags"
	"github.com/whisperwall/whisperwall/store"
)

func Cmd() *cli.Command {
	storeDir := "./data"
	limit := 50
	return &cli.Command{
		Name:  "audit",
		Usage: "Print the most recent audit events",
		Flags: []cli.Flag{
			cmdflags.Store(&storeDir),
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "Maximum number of events to print",
				Value:       limit,
				Destination: &limit,
			},
		},
		Action: func(ctx *cli.Context) error {
			users, err := store.Open(ctx.Context, storeDir)
			if err != nil {
				return err
			}
			defer users.Close()
			events, err := users.RecentAudit(ctx.Context, limit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%v\t%v\t%v\t%v\n", ev.RecordedAt.Format("2006-01-02 15:04:05"), ev.Actor, ev.Action, ev.Target)
			}
			return nil
		},
	}
}
