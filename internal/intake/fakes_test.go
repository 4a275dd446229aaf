package intake

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom/internal/classify"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/mail"
	"github.com/spec-kit/mailroom/internal/repository"
)

// In-memory collaborators for intake tests.

type fakeTicketRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Ticket
	createErr []error // popped per Create call, nil entries succeed
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byID: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErr) > 0 {
		err := r.createErr[0]
		r.createErr = r.createErr[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range r.byID {
		if existing.Number == ticket.Number {
			return fmt.Errorf("duplicate number %s", ticket.Number)
		}
	}
	clone := *ticket
	r.byID[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	r.byID[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.byID[id]; ok {
		clone := *ticket
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
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

func (r *fakeTicketRepo) MaxTicketNumber(_ context.Context, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := ""
	for _, ticket := range r.byID {
		if strings.HasPrefix(ticket.Number, prefix) && ticket.Number > max {
			max = ticket.Number
		}
	}
	return max, nil
}

func (r *fakeTicketRepo) ListByTenant(_ context.Context, tenantID string, _ repository.TicketFilter) ([]domain.Ticket, error) {
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

func (r *fakeTicketRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func (r *fakeMessageRepo) Create(_ context.Context, message *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
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

func (r *fakeMessageRepo) FindTicketIDByExternalMessageID(_ context.Context, messageIDs []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range messageIDs {
		for _, msg := range r.messages {
			if msg.ExternalMessageID != nil && *msg.ExternalMessageID == id {
				return msg.TicketID, nil
			}
		}
	}
	return "", pgx.ErrNoRows
}

type fakeAttachmentRepo struct {
	mu   sync.Mutex
	refs []domain.AttachmentReference
}

func (r *fakeAttachmentRepo) Create(_ context.Context, ref *domain.AttachmentReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, *ref)
	return nil
}

func (r *fakeAttachmentRepo) ListByMessage(_ context.Context, messageID string) ([]domain.AttachmentReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AttachmentReference
	for _, ref := range r.refs {
		if ref.TicketMessageID == messageID {
			result = append(result, ref)
		}
	}
	return result, nil
}

type fakeRuleRepo struct {
	rules []domain.RoutingRule
}

func (r *fakeRuleRepo) Create(context.Context, *domain.RoutingRule) error          { return nil }
func (r *fakeRuleRepo) Update(context.Context, *domain.RoutingRule) error          { return nil }
func (r *fakeRuleRepo) Delete(context.Context, string, string) error               { return nil }
func (r *fakeRuleRepo) GetByID(context.Context, string, string) (*domain.RoutingRule, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakeRuleRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.RoutingRule, error) {
	var result []domain.RoutingRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			result = append(result, rule)
		}
	}
	return result, nil
}

type fakeQueueRepo struct {
	queues []domain.Queue
}

func (r *fakeQueueRepo) Create(context.Context, *domain.Queue) error { return nil }
func (r *fakeQueueRepo) Update(context.Context, *domain.Queue) error { return nil }

func (r *fakeQueueRepo) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	for _, queue := range r.queues {
		if queue.ID == id {
			clone := queue
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeQueueRepo) GetDefaultForTenant(_ context.Context, tenantID string) (*domain.Queue, error) {
	for _, queue := range r.queues {
		if queue.TenantID == tenantID && queue.IsDefault {
			clone := queue
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeQueueRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Queue, error) {
	var result []domain.Queue
	for _, queue := range r.queues {
		if queue.TenantID == tenantID {
			result = append(result, queue)
		}
	}
	return result, nil
}

type fakeLedgerRepo struct {
	mu        sync.Mutex
	entries   map[string]domain.LedgerEntry
	probeErr  error
	recordErr error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: map[string]domain.LedgerEntry{}}
}

func (r *fakeLedgerRepo) Exists(_ context.Context, externalMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.probeErr != nil {
		return false, r.probeErr
	}
	_, ok := r.entries[externalMessageID]
	return ok, nil
}

func (r *fakeLedgerRepo) Record(_ context.Context, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	if _, ok := r.entries[entry.ExternalMessageID]; ok {
		return nil // write-once
	}
	r.entries[entry.ExternalMessageID] = *entry
	return nil
}

func (r *fakeLedgerRepo) GetByExternalMessageID(_ context.Context, externalMessageID string) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[externalMessageID]; ok {
		return &entry, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeInbox struct {
	messages    []mail.InboundMessage
	fetchErr    error
	attachments map[string][]mail.Attachment
}

func (i *fakeInbox) FetchNew(_ context.Context, _ string, since time.Time) ([]mail.InboundMessage, error) {
	if i.fetchErr != nil {
		return nil, i.fetchErr
	}
	var result []mail.InboundMessage
	for _, msg := range i.messages {
		if msg.ReceivedAt.After(since) {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (i *fakeInbox) FetchAttachments(_ context.Context, _ string, externalID string) ([]mail.Attachment, error) {
	return i.attachments[externalID], nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	next  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]byte{}}
}

func (s *fakeStore) Save(_ context.Context, content io.Reader, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.next++
	handle := fmt.Sprintf("blob-%d", s.next)
	s.saved[handle] = data
	return handle, nil
}

func (s *fakeStore) Load(_ context.Context, handle string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[handle]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", handle)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string, string, string) (suggestion classify.Suggestion, err error) {
	return classify.Suggestion{}, fmt.Errorf("model unavailable")
}
