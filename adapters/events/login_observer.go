package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
)

// TopicLoginSucceeded carries client-side login notifications
const TopicLoginSucceeded = "wallet.login.succeeded"

// LoginSucceededEvent is the payload of TopicLoginSucceeded. The session token is never included.
type LoginSucceededEvent struct {
	Account core.Account    `json:"account"`
	Data    json.RawMessage `json:"data"`
}

// LoginObserver broadcasts successful wallet logins on a Watermill publisher
type LoginObserver struct {
	publisher message.Publisher
}

// NewLoginObserver creates an observer publishing to publisher
func NewLoginObserver(publisher message.Publisher) *LoginObserver {
	return &LoginObserver{publisher: publisher}
}

// LoginSucceeded publishes the stored session's account and payload
func (o *LoginObserver) LoginSucceeded(ctx context.Context, session *core.ClientSession) error {
	payload, err := json.Marshal(LoginSucceededEvent{
		Account: session.Account,
		Data:    session.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if err := o.publisher.Publish(TopicLoginSucceeded, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
