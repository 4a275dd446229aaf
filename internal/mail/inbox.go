// Package mail defines the inbound-mail contract the intake pipeline
// consumes. Concrete transports (IMAP, POP3, provider APIs) live behind the
// Inbox interface and are not part of this module.
package mail

import (
	"context"
	"strings"
	"time"
)

// CorrelationHeader carries a ticket's internal id on outbound replies and
// is the primary inbound threading signal.
const CorrelationHeader = "X-Mailroom-Ticket-ID"

// InboundMessage is one raw message yielded by an Inbox.
type InboundMessage struct {
	ExternalID     string
	Subject        string
	Body           string
	SenderEmail    string
	SenderName     string
	ReceivedAt     time.Time
	Headers        map[string]string
	HasAttachments bool
}

// Header returns the value for a header name, case-insensitively.
func (m *InboundMessage) Header(name string) string {
	if value, ok := m.Headers[name]; ok {
		return value
	}
	for key, value := range m.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// ThreadReferences collects the message ids from In-Reply-To and References,
// oldest-last, angle brackets stripped.
func (m *InboundMessage) ThreadReferences() []string {
	var refs []string
	for _, header := range []string{"In-Reply-To", "References"} {
		for _, token := range strings.Fields(m.Header(header)) {
			if id := strings.Trim(token, "<>"); id != "" {
				refs = append(refs, id)
			}
		}
	}
	return refs
}

// Attachment is one binary part fetched for a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Inbox yields raw inbound messages for one tenant mailbox. FetchNew returns
// messages oldest-received-first with a bounded page size; the caller
// advances since between calls.
type Inbox interface {
	FetchNew(ctx context.Context, mailbox string, since time.Time) ([]InboundMessage, error)
	FetchAttachments(ctx context.Context, mailbox, externalID string) ([]Attachment, error)
}
