package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-priority/internal/config"
	"github.com/spec-kit/ticket-priority/internal/events"
)

// NotificationService reacts to dataset refresh events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventDatasetRefreshed, n.handleDatasetRefreshed)
	n.dispatcher.Subscribe(events.EventDatasetFetchFailed, n.handleDatasetFetchFailed)
}

func (n *NotificationService) handleDatasetRefreshed(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("dataset", event.Dataset), zap.String("event_id", event.ID)}
	if p, ok := event.Payload.(events.DatasetRefreshedPayload); ok {
		fields = append(fields,
			zap.String("fetch_id", p.FetchID),
			zap.Int("bytes", p.Bytes),
			zap.Int64("duration_ms", p.DurationMS))
	}
	n.logger.Info("DatasetRefreshed", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// A failed fetch is the one event operators get mailed about.
func (n *NotificationService) handleDatasetFetchFailed(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("dataset", event.Dataset), zap.String("event_id", event.ID)}
	if p, ok := event.Payload.(events.DatasetFetchFailedPayload); ok {
		fields = append(fields, zap.String("fetch_id", p.FetchID), zap.String("error", p.Error))
	}
	n.logger.Warn("DatasetFetchFailed", fields...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("dataset", event.Dataset),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("dataset", event.Dataset),
		zap.String("event_type", string(event.Type)))
}
