package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dormdesk/maintenance-service/internal/config"
	"github.com/dormdesk/maintenance-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
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
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketRated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.ActorID),
		zap.String("actor_role", string(event.ActorRole)),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
