package adduser

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/whisperwall/whisperwall/internal/cmdflags"
	"github.com/whisperwall/whisperwall/internal/logutil"
	"github.com/whisperwall/whisperwall/store"
)

const (
	// PasswordEnvVar holds the password for the new account. It is read
	// from the environment instead of the argument list so it never shows
	// up in shell history or process listings.
	PasswordEnvVar = "WHISPERWALL_PASSWORD"
)

func Cmd() *cli.Command {
	storeDir := "./data"
	var username string
	return &cli.Command{
		Name:  "adduser",
		Usage: "Create a local account without going through the web form",
		Flags: []cli.Flag{
			cmdflags.Store(&storeDir),
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u"},
				Usage:       "Username for the new account",
				Destination: &username,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			password := os.Getenv(PasswordEnvVar)
			os.Setenv(PasswordEnvVar, "")
			if password == "" {
				return fmt.Errorf("set %v with the desired password before running adduser", PasswordEnvVar)
			}
			users, err := store.Open(ctx.Context, storeDir)
			if err != nil {
				return err
			}
			defer users.Close()
			user, err := users.CreateLocal(ctx.Context, username, password)
			if err != nil {
				return err
			}
			logger := logutil.GetOrDefault(ctx.Context)
			logger.Info().Str("user.id", user.ID).Str("user.name", user.Username).Msg("Account created")
			return nil
		},
	}
}
