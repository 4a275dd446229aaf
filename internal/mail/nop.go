package mail

import (
	"context"
	"time"
)

// NopInbox yields no messages. Used when no mail transport is configured so
// the poller and API can still run.
type NopInbox struct{}

func (NopInbox) FetchNew(context.Context, string, time.Time) ([]InboundMessage, error) {
	return nil, nil
}

func (NopInbox) FetchAttachments(context.Context, string, string) ([]Attachment, error) {
	return nil, nil
}
