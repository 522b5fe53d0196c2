package pubsub

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/model"
)

// LogPublisher only logs events. It is meant for local runs without a broker.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) PublishSaveRequested(ctx context.Context, event model.SaveRequestedEvent) error {
	logutil.GetLogger(ctx).Info("save requested",
		zap.String("request_id", event.RequestID),
		zap.String("user_id", event.UserID),
		zap.String("url", event.URL),
		zap.Strings("labels", event.Labels),
		zap.String("source", event.Source),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
