package pubsub

import (
	"context"
	"fmt"

	"github.com/xxxsen/readlater/internal/config"
	"github.com/xxxsen/readlater/internal/model"
)

type Publisher interface {
	PublishSaveRequested(ctx context.Context, event model.SaveRequestedEvent) error
	Close() error
}

func New(cfg config.PubSubConfig) (Publisher, error) {
	switch cfg.Type {
	case "", "log":
		return NewLogPublisher(), nil
	case "amqp":
		return NewAMQPPublisher(AMQPConfig{
			URL:          cfg.URL,
			Exchange:     cfg.Exchange,
			ExchangeType: cfg.ExchangeType,
			RoutingKey:   cfg.RoutingKey,
		})
	default:
		return nil, fmt.Errorf("unsupported pubsub type: %s", cfg.Type)
	}
}
