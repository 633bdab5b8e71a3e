package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/layer-3/walletgate/wallet"
	"github.com/urfave/cli/v2"
)

var loginCommand = &cli.Command{
	Name:  "login",
	Usage: "connect the wallet, sign a login message and store the session",
	Action: func(c *cli.Context) error {
		env, err := setup(c)
		if err != nil {
			return err
		}
		defer env.Close()

		attempt, err := env.flow.Login(c.Context)
		if err != nil {
			return flowExit(err)
		}
		fmt.Fprintf(os.Stderr, "logged in as %s\n", attempt.Account)
		return printJSON(attempt.Session.Data)
	},
}

var registerCommand = &cli.Command{
	Name:  "register",
	Usage: "create an account for the wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Usage:    "username for the new account",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "optional email address",
		},
	},
	Action: func(c *cli.Context) error {
		env, err := setup(c)
		if err != nil {
			return err
		}
		defer env.Close()

		reg, err := env.flow.PrepareRegistration(c.Context)
		if err != nil {
			return flowExit(err)
		}
		attempt, err := env.flow.Register(c.Context, reg, wallet.Profile{
			Username: c.String("username"),
			Email:    c.String("email"),
		})
		if err != nil {
			return flowExit(err)
		}
		fmt.Fprintf(os.Stderr, "registered %s\n", attempt.Account)
		return printJSON(attempt.Session.Data)
	},
}

var bindCommand = &cli.Command{
	Name:  "bind",
	Usage: "print the wallet account that would be bound to a profile",
	Action: func(c *cli.Context) error {
		env, err := setup(c)
		if err != nil {
			return err
		}
		defer env.Close()

		account, err := env.flow.Bind(c.Context)
		if err != nil {
			return flowExit(err)
		}
		fmt.Println(account)
		return nil
	},
}

var whoamiCommand = &cli.Command{
	Name:  "whoami",
	Usage: "ask the server who is logged in",
	Action: func(c *cli.Context) error {
		env, err := setup(c)
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.flow.CurrentUser(c.Context)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if user == nil {
			return cli.Exit("not logged in", 1)
		}
		return printJSON(user)
	},
}

var logoutCommand = &cli.Command{
	Name:  "logout",
	Usage: "end the session and forget it locally",
	Action: func(c *cli.Context) error {
		env, err := setup(c)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.flow.Logout(c.Context); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintln(os.Stderr, "logged out")
		return nil
	},
}

// flowExit turns a flow failure into the user-facing message and an exit code
func flowExit(err error) error {
	var flowErr *wallet.FlowError
	if errors.As(err, &flowErr) {
		return cli.Exit(fmt.Sprintf("%s (%s)", flowErr.Message, flowErr.Reason), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func printJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
