package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/contextkeys"
	"github.com/xxxsen/readlater/internal/model"
)

const publishTimeout = 10 * time.Second

type AMQPConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
	RoutingKey   string
}

type AMQPPublisher struct {
	cfg  AMQPConfig
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	p := &AMQPPublisher{cfg: cfg}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	if p.cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(p.cfg.Exchange, p.cfg.ExchangeType, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s: %w", p.cfg.Exchange, err)
		}
	}
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) PublishSaveRequested(ctx context.Context, event model.SaveRequestedEvent) error {
	msg, err := buildPublishing(ctx, event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		logutil.GetLogger(ctx).Warn("amqp connection closed, reconnecting")
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.ch.PublishWithContext(publishCtx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish save request %s: %w", event.RequestID, err)
	}
	logutil.GetLogger(ctx).Debug("save request published",
		zap.String("request_id", event.RequestID),
		zap.String("routing_key", p.cfg.RoutingKey),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && err != amqp.ErrClosed {
			firstErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && err != amqp.ErrClosed && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

func buildPublishing(ctx context.Context, event model.SaveRequestedEvent) (amqp.Publishing, error) {
	if event.Labels == nil {
		event.Labels = []string{}
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal save request %s: %w", event.RequestID, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.RequestID,
		Timestamp:    time.Unix(event.Ctime, 0),
		Type:         "save_requested",
		Headers:      amqp.Table{},
	}
	if requestID := contextkeys.RequestIDFromContext(ctx); requestID != "" {
		msg.Headers["x-request-id"] = requestID
	}
	return msg, nil
}
