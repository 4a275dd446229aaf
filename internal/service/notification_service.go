package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/events"
)

// NotificationService listens to ticket events and surfaces them to agents.
// The current sink is the structured log; webhook and email fan-out attach
// here without touching the publishers.
type NotificationService struct {
	logger *zap.Logger
}

func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger}
}

// Register subscribes the notification handlers to the dispatcher.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventIntakeFailed, s.onIntakeFailed)
}

func (s *NotificationService) onTicketCreated(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	s.logger.Info("notify: ticket created",
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID),
		zap.String("number", payload.Number),
		zap.String("requester", payload.RequesterEmail),
	)
	return nil
}

func (s *NotificationService) onStatusChanged(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketStatusChangedPayload)
	s.logger.Info("notify: ticket status changed",
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
	)
	return nil
}

func (s *NotificationService) onIntakeFailed(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.IntakeFailedPayload)
	s.logger.Warn("notify: intake message failed",
		zap.String("tenant_id", event.TenantID),
		zap.String("external_message_id", payload.ExternalMessageID),
		zap.String("error", payload.ErrorDetail),
	)
	return nil
}
