package domain

import "time"

// LedgerOutcome records how an inbound message was disposed of.
type LedgerOutcome string

const (
	OutcomeCreated  LedgerOutcome = "CREATED"
	OutcomeAppended LedgerOutcome = "APPENDED"
	OutcomeSkipped  LedgerOutcome = "SKIPPED"
	OutcomeFailed   LedgerOutcome = "FAILED"
)

// LedgerEntry is the write-once idempotency record for one inbound message,
// keyed by the message's external id. It is the sole duplicate-processing
// guard for intake.
type LedgerEntry struct {
	ID                string
	ExternalMessageID string
	Outcome           LedgerOutcome
	TicketID          *string
	ErrorDetail       *string
	ProcessedAt       time.Time
}
