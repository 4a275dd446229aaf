package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom/internal/domain"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

func apperrorsToDomain(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	return de
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testMachine() *Machine {
	return NewWithNow(func() time.Time { return fixedNow })
}

func ticketIn(status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{ID: "t-1", TenantID: "tn-1", Status: status}
}

func TestTransitionTable(t *testing.T) {
	all := []domain.TicketStatus{
		domain.TicketStatusNew,
		domain.TicketStatusOpen,
		domain.TicketStatusPending,
		domain.TicketStatusOnHold,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	}
	allowed := map[domain.TicketStatus][]domain.TicketStatus{
		domain.TicketStatusNew:      {domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusClosed},
		domain.TicketStatusOpen:     {domain.TicketStatusPending, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
		domain.TicketStatusPending:  {domain.TicketStatusOpen, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
		domain.TicketStatusOnHold:   {domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
		domain.TicketStatusResolved: {domain.TicketStatusOpen, domain.TicketStatusClosed},
		domain.TicketStatusClosed:   {domain.TicketStatusOpen},
	}

	m := testMachine()
	for _, from := range all {
		allowedSet := map[domain.TicketStatus]bool{}
		for _, to := range allowed[from] {
			allowedSet[to] = true
		}
		for _, to := range all {
			ticket := ticketIn(from)
			err := m.Transition(ticket, to)
			if allowedSet[to] {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
				assert.Equal(t, to, ticket.Status)
			} else {
				require.Error(t, err, "%s -> %s should be rejected", from, to)
				assert.Equal(t, from, ticket.Status, "rejected transition must not modify the ticket")
				assert.Nil(t, ticket.ResolvedAt)
				assert.Nil(t, ticket.ClosedAt)
			}
		}
	}
}

func TestTransitionRejectionIsValidationFailure(t *testing.T) {
	m := testMachine()
	err := m.Transition(ticketIn(domain.TicketStatusClosed), domain.TicketStatusResolved)
	require.Error(t, err)
	de := apperrorsToDomain(t, err)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestResolvedAndClosedTimestamps(t *testing.T) {
	m := testMachine()

	ticket := ticketIn(domain.TicketStatusOpen)
	require.NoError(t, m.Transition(ticket, domain.TicketStatusResolved))
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, fixedNow, *ticket.ResolvedAt)
	assert.Nil(t, ticket.ClosedAt)

	require.NoError(t, m.Transition(ticket, domain.TicketStatusClosed))
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, fixedNow, *ticket.ClosedAt)
}

func TestReopenClearsBothTerminalTimestamps(t *testing.T) {
	m := testMachine()

	for _, terminal := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
		ticket := ticketIn(terminal)
		ticket.ResolvedAt = &fixedNow
		ticket.ClosedAt = &fixedNow
		require.NoError(t, m.Transition(ticket, domain.TicketStatusOpen))
		assert.Nil(t, ticket.ResolvedAt, "reopen from %s", terminal)
		assert.Nil(t, ticket.ClosedAt, "reopen from %s", terminal)
	}
}

func TestReopenFromPendingKeepsTimestamps(t *testing.T) {
	// Entering OPEN from a non-terminal state must not touch the markers.
	m := testMachine()
	earlier := fixedNow.Add(-time.Hour)
	ticket := ticketIn(domain.TicketStatusPending)
	ticket.ResolvedAt = &earlier
	require.NoError(t, m.Transition(ticket, domain.TicketStatusOpen))
	assert.Equal(t, &earlier, ticket.ResolvedAt)
}

func TestOutboundReplyAutoOpensNewTicket(t *testing.T) {
	m := testMachine()
	ticket := ticketIn(domain.TicketStatusNew)
	m.RecordOutboundReply(ticket)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, fixedNow, *ticket.FirstResponseAt)
}

func TestOutboundReplyLeavesOtherStatuses(t *testing.T) {
	m := testMachine()
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusPending,
		domain.TicketStatusOnHold,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	} {
		ticket := ticketIn(status)
		m.RecordOutboundReply(ticket)
		assert.Equal(t, status, ticket.Status)
	}
}

func TestFirstResponseAtIsWriteOnce(t *testing.T) {
	m := testMachine()
	earlier := fixedNow.Add(-time.Hour)
	ticket := ticketIn(domain.TicketStatusOpen)
	ticket.FirstResponseAt = &earlier

	m.RecordOutboundReply(ticket)
	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, earlier, *ticket.FirstResponseAt, "second outbound reply must not move first response")
}

func TestNewTicketStamps(t *testing.T) {
	m := testMachine()
	ticket := &domain.Ticket{ID: "t-9"}
	m.NewTicket(ticket)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, fixedNow, ticket.CreatedAt)
}
