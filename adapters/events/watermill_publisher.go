package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletgate/ports"
)

const (
	TopicLogin  = "walletgate.login"
	TopicLogout = "walletgate.logout"
)

// LoginEvent is published when a server session starts
type LoginEvent struct {
	Address   string    `json:"address"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
}

// LogoutEvent is published when a session is invalidated
type LogoutEvent struct {
	Address string    `json:"address"`
	TokenID string    `json:"token_id"`
	Time    time.Time `json:"time"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address string, sessionID string) error {
	return p.publish(ctx, TopicLogin, sessionID, LoginEvent{
		Address:   address,
		SessionID: sessionID,
		Time:      time.Now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
		Time:    time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
