package domain

import "time"

// MessageDirection indicates whether a message arrived from the requester or
// was sent by an agent.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "INBOUND"
	DirectionOutbound MessageDirection = "OUTBOUND"
)

// TicketMessage captures one communication event in a ticket thread.
// Created once per inbound/outbound event, immutable thereafter.
type TicketMessage struct {
	ID                string
	TicketID          string
	Direction         MessageDirection
	SenderEmail       string
	SenderName        string
	Body              string
	ExternalMessageID *string
	Attachments       []AttachmentReference
	CreatedAt         time.Time
}

// AttachmentReference stores metadata for ticket message attachments.
type AttachmentReference struct {
	ID              string
	TicketMessageID string
	StorageKey      string
	FileName        string
	MimeType        string
	SizeBytes       int64
	CreatedAt       time.Time
}
