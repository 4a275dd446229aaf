package mail

import (
	"context"

	"go.uber.org/zap"
)

// OutboundMessage is a reply to be delivered to the requester. Callers stamp
// the correlation header and subject token before handing it to an Outbox so
// every delivery transport threads replies the same way.
type OutboundMessage struct {
	To      string
	Subject string
	Body    string
	Headers map[string]string
}

// Outbox delivers outbound replies. Concrete transports are provided by the
// deployment, like Inbox.
type Outbox interface {
	Send(ctx context.Context, mailbox string, msg OutboundMessage) error
}

// LogOutbox records outbound replies in the log instead of delivering them.
// Used when no delivery transport is configured.
type LogOutbox struct {
	logger *zap.Logger
}

func NewLogOutbox(logger *zap.Logger) *LogOutbox {
	return &LogOutbox{logger: logger}
}

func (o *LogOutbox) Send(_ context.Context, mailbox string, msg OutboundMessage) error {
	o.logger.Info("outbound reply (log transport)",
		zap.String("mailbox", mailbox),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("ticket_id", msg.Headers[CorrelationHeader]),
	)
	return nil
}
