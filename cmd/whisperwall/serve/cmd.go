package serve

import (
	"time"

	"github.com/urfave/cli/v2"
	"github.com/whisperwall/whisperwall/auth"
	"github.com/whisperwall/whisperwall/internal/cmdflags"
	"github.com/whisperwall/whisperwall/internal/httpserver"
	"github.com/whisperwall/whisperwall/internal/logutil"
	"github.com/whisperwall/whisperwall/internal/ratelimit"
	"github.com/whisperwall/whisperwall/store"
	"github.com/whisperwall/whisperwall/web"
)

const (
	rateWindow        = 15 * time.Minute
	generalRateLimit  = 20
	registerRateLimit = 10

	generalRateMessage  = "Too many requests sent from this IP, please try again after 15 minutes"
	registerRateMessage = "Too many accounts created from this IP, please try again after 15 minutes"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7080"
	storeDir := "./data"
	var certFile, keyFile string
	var insecureCookie bool
	sessionTTL := 24 * time.Hour
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the whisperwall web application",
		Flags: []cli.Flag{
			cmdflags.Bind(&bindAddr),
			cmdflags.Store(&storeDir),
			&cli.StringFlag{
				Name:        "cert-file",
				Usage:       "Path to the TLS certificate. Serves plain HTTP when absent",
				Destination: &certFile,
			},
			&cli.StringFlag{
				Name:        "key-file",
				Usage:       "Path to the TLS private key",
				Destination: &keyFile,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookie",
				Usage:       "Allow the session cookie over plain HTTP (local development only)",
				Destination: &insecureCookie,
			},
			&cli.DurationFlag{
				Name:        "session-ttl",
				Usage:       "How long an idle session stays valid",
				Value:       sessionTTL,
				Destination: &sessionTTL,
			},
		},
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			users, err := store.Open(ctx.Context, storeDir)
			if err != nil {
				return err
			}
			defer users.Close()

			tokens, err := auth.InMemoryTokenStore(sessionTTL)
			if err != nil {
				return err
			}
			sessions := auth.NewSessions(tokens, insecureCookie)

			googleCfg, err := auth.GoogleConfigFromEnv()
			if err != nil {
				return err
			}
			var google *auth.GoogleStrategy
			if googleCfg.Enabled() {
				google = auth.NewGoogleStrategy(googleCfg, users)
			} else {
				log.Warn().Msg("GOOGLE_CLIENT_ID not set, Google login disabled")
			}

			general, err := ratelimit.New(rateWindow, generalRateLimit, generalRateMessage)
			if err != nil {
				return err
			}
			register, err := ratelimit.New(rateWindow, registerRateLimit, registerRateMessage)
			if err != nil {
				return err
			}

			handler, err := web.NewHandler(users, sessions, web.Options{
				GeneralLimiter:  general,
				RegisterLimiter: register,
				Google:          google,
				AllowHTTPCookie: insecureCookie,
			})
			if err != nil {
				return err
			}
			if certFile != "" {
				return httpserver.ServeTLS(ctx.Context, bindAddr, handler, certFile, keyFile)
			}
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}
