package main

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/walletgate/adapters/apiclient"
	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/provider"
	"github.com/layer-3/walletgate/adapters/sessionstore"
	"github.com/layer-3/walletgate/ports"
	"github.com/layer-3/walletgate/wallet"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var stdin = bufio.NewReader(os.Stdin)

// environment holds everything a command needs and what must be closed afterwards
type environment struct {
	flow    *wallet.Flow
	closers []func()
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func setup(c *cli.Context) (*environment, error) {
	env := &environment{}

	sessionPath := c.Path("session-file")
	if sessionPath == "" {
		var err error
		if sessionPath, err = sessionstore.DefaultPath(); err != nil {
			return nil, err
		}
	}

	walletProvider, err := openProvider(c, env)
	if err != nil {
		env.Close()
		return nil, err
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	env.closers = append(env.closers, func() { _ = pubSub.Close() })

	logins, err := pubSub.Subscribe(c.Context, events.TopicLoginSucceeded)
	if err != nil {
		env.Close()
		return nil, err
	}
	go func() {
		for msg := range logins {
			var event events.LoginSucceededEvent
			if err := json.Unmarshal(msg.Payload, &event); err == nil {
				log.Info().Str("account", string(event.Account)).Msg("session stored")
			}
			msg.Ack()
		}
	}()

	env.flow = wallet.New(
		wallet.NewGuard(),
		walletProvider,
		apiclient.New(c.String("server"), nil),
		sessionstore.NewFileStore(sessionPath),
		wallet.WithLogger(log.Logger),
		wallet.WithObserver(events.NewLoginObserver(pubSub)),
	)
	return env, nil
}

// openProvider picks the wallet: a JSON-RPC endpoint, a keystore or a raw key.
// With none of them configured the flow runs without a provider.
func openProvider(c *cli.Context, env *environment) (ports.Provider, error) {
	if url := c.String("rpc"); url != "" {
		rpcProvider, err := provider.Dial(c.Context, url)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, rpcProvider.Close)
		return rpcProvider, nil
	}

	var keys []*ecdsa.PrivateKey
	if path := c.Path("keystore"); path != "" {
		key, err := provider.LoadKeystore(path, c.String("passphrase"))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if hexKey := c.String("private-key"); hexKey != "" {
		key, err := provider.ParseHexKey(hexKey)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var approve provider.ApproveFunc
	if !c.Bool("yes") {
		approve = promptApproval
	}
	return provider.NewKeyProvider(approve, keys...), nil
}

func promptApproval(_ context.Context, prompt provider.Prompt) bool {
	switch prompt.Kind {
	case provider.PromptAccounts:
		fmt.Fprint(os.Stderr, "Connect wallet accounts? [y/N] ")
	case provider.PromptSign:
		fmt.Fprintf(os.Stderr, "Sign this message with %s?\n\n%s\n\n[y/N] ", prompt.Account, prompt.Message)
	}

	answer, _ := stdin.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
