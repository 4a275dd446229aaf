package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/lifecycle"
	"github.com/spec-kit/mailroom/internal/mail"
	"github.com/spec-kit/mailroom/internal/repository"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

var serviceNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type memTicketRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Ticket
}

func newMemTicketRepo(tickets ...*domain.Ticket) *memTicketRepo {
	r := &memTicketRepo{byID: map[string]*domain.Ticket{}}
	for _, ticket := range tickets {
		clone := *ticket
		r.byID[ticket.ID] = &clone
	}
	return r
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ticket
	r.byID[ticket.ID] = &clone
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.Create(context.Background(), ticket)
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.byID[id]; ok {
		clone := *ticket
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.byID {
		if ticket.Number == number {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) MaxTicketNumber(context.Context, string) (string, error) { return "", nil }

func (r *memTicketRepo) ListByTenant(_ context.Context, tenantID string, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.byID {
		if ticket.TenantID == tenantID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func (r *memMessageRepo) Create(_ context.Context, message *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *memMessageRepo) FindTicketIDByExternalMessageID(context.Context, []string) (string, error) {
	return "", pgx.ErrNoRows
}

type memAgentRepo struct {
	agents map[string]*domain.Agent
}

func (r *memAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	if agent, ok := r.agents[id]; ok {
		return agent, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, agent := range r.agents {
		if agent.Email == email {
			return agent, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAgentRepo) ListByTenant(context.Context, string) ([]domain.Agent, error) {
	return nil, nil
}

type recordingOutbox struct {
	sent []mail.OutboundMessage
}

func (o *recordingOutbox) Send(_ context.Context, _ string, msg mail.OutboundMessage) error {
	o.sent = append(o.sent, msg)
	return nil
}

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func openTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "tk-1",
		TenantID:       "tn-1",
		Number:         "TKT-20250301-0001",
		Subject:        "Cannot log in",
		Status:         domain.TicketStatusNew,
		Priority:       domain.TicketPriorityMedium,
		RequesterEmail: "alice@acme.example",
	}
}

func testAgent() *domain.Agent {
	return &domain.Agent{
		ID:          "ag-1",
		TenantID:    "tn-1",
		Email:       "bob@support.example",
		DisplayName: "Bob",
		Role:        domain.AgentRoleAgent,
		Active:      true,
	}
}

func newTicketService(repo *memTicketRepo, msgs *memMessageRepo, outbox mail.Outbox, dispatcher events.Dispatcher) *TicketService {
	now := func() time.Time { return serviceNow }
	return NewTicketService(TicketServiceDeps{
		TicketRepo:  repo,
		MessageRepo: msgs,
		AgentRepo:   &memAgentRepo{agents: map[string]*domain.Agent{"ag-1": testAgent()}},
		Machine:     lifecycle.NewWithNow(now),
		Outbox:      outbox,
		Dispatcher:  dispatcher,
		Now:         now,
	})
}

func TestGetScopesToTenant(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	svc := newTicketService(repo, &memMessageRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "tn-1", "tk-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "tn-other", "tk-1")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestTransitionPersistsAndPublishes(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	dispatcher := &recordingDispatcher{}
	svc := newTicketService(repo, &memMessageRepo{}, nil, dispatcher)

	ticket, err := svc.Transition(context.Background(), "tn-1", "tk-1", domain.TicketStatusOpen, "ag-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	stored, _ := repo.GetByID(context.Background(), "tk-1")
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, events.EventTicketStatusChanged, dispatcher.events[0].Type)
}

func TestTransitionRejectedLeavesTicketUntouched(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	svc := newTicketService(repo, &memMessageRepo{}, nil, nil)

	_, err := svc.Transition(context.Background(), "tn-1", "tk-1", domain.TicketStatusResolved, "ag-1")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	stored, _ := repo.GetByID(context.Background(), "tk-1")
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestReplyStampsCorrelationContract(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	outbox := &recordingOutbox{}
	dispatcher := &recordingDispatcher{}
	msgs := &memMessageRepo{}
	svc := newTicketService(repo, msgs, outbox, dispatcher)

	message, err := svc.Reply(context.Background(), "tn-1", "tk-1", testAgent(), "We are on it.")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionOutbound, message.Direction)

	require.Len(t, outbox.sent, 1)
	sent := outbox.sent[0]
	assert.Equal(t, "alice@acme.example", sent.To)
	assert.Equal(t, "Re: [TKT-20250301-0001] Cannot log in", sent.Subject)
	assert.Equal(t, "tk-1", sent.Headers[mail.CorrelationHeader])
}

func TestFirstReplyOpensTicketAndStampsFirstResponse(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	svc := newTicketService(repo, &memMessageRepo{}, &recordingOutbox{}, nil)

	_, err := svc.Reply(context.Background(), "tn-1", "tk-1", testAgent(), "Looking into it.")
	require.NoError(t, err)

	stored, _ := repo.GetByID(context.Background(), "tk-1")
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, serviceNow, *stored.FirstResponseAt)
}

func TestReplyDoesNotDoubleSubjectToken(t *testing.T) {
	ticket := openTicket()
	ticket.Subject = "[TKT-20250301-0001] Cannot log in"
	repo := newMemTicketRepo(ticket)
	outbox := &recordingOutbox{}
	svc := newTicketService(repo, &memMessageRepo{}, outbox, nil)

	_, err := svc.Reply(context.Background(), "tn-1", "tk-1", testAgent(), "Still on it.")
	require.NoError(t, err)

	require.Len(t, outbox.sent, 1)
	subject := outbox.sent[0].Subject
	assert.Equal(t, "Re: [TKT-20250301-0001] Cannot log in", subject)
	assert.Equal(t, 1, strings.Count(subject, "TKT-20250301-0001"))
}

func TestReplyPreviewKeepsValidUTF8(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	dispatcher := &recordingDispatcher{}
	svc := newTicketService(repo, &memMessageRepo{}, &recordingOutbox{}, dispatcher)

	// One ASCII byte shifts every 2-byte rune to an odd offset, so the
	// 120-byte cut lands mid-rune.
	body := "a" + strings.Repeat("é", 100)
	_, err := svc.Reply(context.Background(), "tn-1", "tk-1", testAgent(), body)
	require.NoError(t, err)

	require.NotEmpty(t, dispatcher.events)
	payload, ok := dispatcher.events[0].Payload.(events.MessageAppendedPayload)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(payload.BodyPreview))
	assert.Equal(t, "a"+strings.Repeat("é", 59), payload.BodyPreview)
}

func TestReplyRejectsEmptyBody(t *testing.T) {
	svc := newTicketService(newMemTicketRepo(openTicket()), &memMessageRepo{}, nil, nil)
	_, err := svc.Reply(context.Background(), "tn-1", "tk-1", testAgent(), "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestAssignRejectsForeignAgent(t *testing.T) {
	repo := newMemTicketRepo(openTicket())
	svc := newTicketService(repo, &memMessageRepo{}, nil, nil)

	foreign := "ag-foreign"
	_, err := svc.Assign(context.Background(), "tn-1", "tk-1", &foreign)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
