package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	app := &cli.App{
		Name:  "walletlogin",
		Usage: "sign in to a walletgate server with an Ethereum wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the auth server",
				Value:   "http://localhost:9000",
				EnvVars: []string{"WALLETGATE_SERVER"},
			},
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "wallet JSON-RPC endpoint (http, ws or ipc)",
				EnvVars: []string{"WALLETGATE_WALLET_RPC"},
			},
			&cli.PathFlag{
				Name:    "keystore",
				Usage:   "keystore file used as a local wallet",
				EnvVars: []string{"WALLETGATE_KEYSTORE"},
			},
			&cli.StringFlag{
				Name:    "passphrase",
				Usage:   "keystore passphrase",
				EnvVars: []string{"WALLETGATE_PASSPHRASE"},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "hex private key used as a local wallet",
				EnvVars: []string{"WALLETGATE_PRIVATE_KEY"},
			},
			&cli.PathFlag{
				Name:    "session-file",
				Usage:   "where the session is stored (defaults to the user config dir)",
				EnvVars: []string{"WALLETGATE_SESSION_FILE"},
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "approve local wallet prompts without asking",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every step",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			loginCommand,
			registerCommand,
			bindCommand,
			whoamiCommand,
			logoutCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
