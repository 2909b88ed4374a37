package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/events"
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
	n.dispatcher.Subscribe(events.EventChangeRequestCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventChangeRequestApproved, n.handleResolved)
	n.dispatcher.Subscribe(events.EventChangeRequestRejected, n.handleResolved)
	n.dispatcher.Subscribe(events.EventEntityFieldApplied, n.handleApplied)
}

// moderators hear about new requests
func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ChangeRequestCreated",
		zap.String("change_request_id", event.ChangeRequestID),
		zap.String("entity_id", event.EntityID.String()),
		zap.String("field_type", event.FieldType))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// the requester hears about the outcome
func (n *NotificationService) handleResolved(ctx context.Context, event events.Event) error {
	n.logger.Info("ChangeRequestResolved",
		zap.String("change_request_id", event.ChangeRequestID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor", event.Actor))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleApplied(ctx context.Context, event events.Event) error {
	n.logger.Info("EntityFieldApplied",
		zap.String("change_request_id", event.ChangeRequestID),
		zap.String("entity_type", string(event.EntityType)),
		zap.String("entity_id", event.EntityID.String()),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("change_request_id", event.ChangeRequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("change_request_id", event.ChangeRequestID),
		zap.String("event_type", string(event.Type)))
}
