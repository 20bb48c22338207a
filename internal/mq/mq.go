package mq

import (
	"context"
	"fmt"

	"github.com/hoa-ledger/apiserver/config"
)

// Attribute keys set on every published event.
const (
	AttrType    = "type"
	AttrSubject = "subject"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects the backend named by cfg.MQ.Backend. It returns nil, nil
// when events are disabled.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.MQ.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}
