// Package intake converts inbound email into new tickets or appended
// messages on existing tickets. Processing is idempotent per external
// message id: the processing ledger is the sole duplicate guard.
package intake

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/classify"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/lifecycle"
	"github.com/spec-kit/mailroom/internal/mail"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/routing"
	"github.com/spec-kit/mailroom/internal/storage"
	"github.com/spec-kit/mailroom/internal/ticketnumber"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

const defaultNumberRetries = 5

// Service orchestrates the intake pipeline for one message at a time.
type Service struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	attachments repository.AttachmentRepository
	rules       repository.RoutingRuleRepository
	queues      repository.QueueRepository
	ledger      repository.LedgerRepository
	inbox       mail.Inbox
	store       storage.AttachmentStore
	classifier  classify.Classifier
	engine      *routing.Engine
	machine     *lifecycle.Machine
	allocator   *ticketnumber.Allocator
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	now           func() time.Time
	numberRetries int
	maxBodyBytes  int
}

// Dependencies bundles collaborators for the intake service.
type Dependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	AttachmentRepo repository.AttachmentRepository
	RuleRepo       repository.RoutingRuleRepository
	QueueRepo      repository.QueueRepository
	LedgerRepo     repository.LedgerRepository
	Inbox          mail.Inbox
	Store          storage.AttachmentStore
	Classifier     classify.Classifier
	Engine         *routing.Engine
	Machine        *lifecycle.Machine
	Allocator      *ticketnumber.Allocator
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger

	Now           func() time.Time
	NumberRetries int
	MaxBodyBytes  int
}

// NewService constructs the intake service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		tickets:       deps.TicketRepo,
		messages:      deps.MessageRepo,
		attachments:   deps.AttachmentRepo,
		rules:         deps.RuleRepo,
		queues:        deps.QueueRepo,
		ledger:        deps.LedgerRepo,
		inbox:         deps.Inbox,
		store:         deps.Store,
		classifier:    deps.Classifier,
		engine:        deps.Engine,
		machine:       deps.Machine,
		allocator:     deps.Allocator,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           deps.Now,
		numberRetries: deps.NumberRetries,
		maxBodyBytes:  deps.MaxBodyBytes,
	}
	if s.classifier == nil {
		s.classifier = classify.NewNoop()
	}
	if s.engine == nil {
		s.engine = routing.NewEngine()
	}
	if s.machine == nil {
		s.machine = lifecycle.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.numberRetries <= 0 {
		s.numberRetries = defaultNumberRetries
	}
	return s
}

// ProcessMailbox runs one poll for a mailbox: fetch new messages and process
// them sequentially in ascending receipt order. A fetch failure aborts the
// run as retryable; a single message failure is recorded in the ledger and
// the batch continues. A message left unledgered (probe or ledger-write
// failure) makes the whole run retryable so the poll cursor is not advanced
// past it.
func (s *Service) ProcessMailbox(ctx context.Context, mailbox *domain.MailboxConfig) error {
	since := time.Time{}
	if mailbox.LastPolledAt != nil {
		since = *mailbox.LastPolledAt
	}

	messages, err := s.inbox.FetchNew(ctx, mailbox.Address, since)
	if err != nil {
		return apperrors.NewTransientExternal(
			fmt.Sprintf("fetch mailbox %s", mailbox.Address), err)
	}

	unledgered := 0
	for i := range messages {
		outcome, err := s.ProcessInboundMessage(ctx, &messages[i], mailbox)
		if err != nil {
			unledgered++
			s.logger.Error("inbound message left unledgered",
				zap.String("external_message_id", messages[i].ExternalID),
				zap.Error(err))
			continue
		}
		s.logger.Debug("inbound message processed",
			zap.String("external_message_id", messages[i].ExternalID),
			zap.String("outcome", string(outcome)))
	}
	if unledgered > 0 {
		return apperrors.NewTransientExternal(
			fmt.Sprintf("%d message(s) left unledgered in mailbox %s", unledgered, mailbox.Address), nil)
	}
	return nil
}

// ProcessInboundMessage handles one message end to end and returns the
// ledgered outcome. Failures inside matching/creation/append never
// propagate: they are recorded as FAILED and the caller moves on. A non-nil
// error means the message was NOT ledgered (probe or ledger-write failure)
// and must be re-fetched on the next poll.
func (s *Service) ProcessInboundMessage(ctx context.Context, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) (domain.LedgerOutcome, error) {
	exists, err := s.ledger.Exists(ctx, msg.ExternalID)
	if err != nil {
		return "", err
	}
	if exists {
		return domain.OutcomeSkipped, nil
	}

	outcome, ticketID, procErr := s.dispose(ctx, msg, mailbox)

	entry := &domain.LedgerEntry{
		ID:                uuid.NewString(),
		ExternalMessageID: msg.ExternalID,
		Outcome:           outcome,
		TicketID:          ticketID,
		ProcessedAt:       s.now(),
	}
	if procErr != nil {
		detail := procErr.Error()
		entry.ErrorDetail = &detail
		s.logger.Warn("inbound message failed",
			zap.String("external_message_id", msg.ExternalID),
			zap.String("mailbox", mailbox.Address),
			zap.Error(procErr))
		s.publish(ctx, events.Event{
			Type:     events.EventIntakeFailed,
			TenantID: mailbox.TenantID,
			Payload: events.IntakeFailedPayload{
				ExternalMessageID: msg.ExternalID,
				ErrorDetail:       detail,
			},
		})
	}

	if err := s.ledger.Record(ctx, entry); err != nil {
		// The message stays unledgered and retries on the next poll;
		// at-least-once.
		s.logger.Error("ledger write failed",
			zap.String("external_message_id", msg.ExternalID),
			zap.Error(err))
		return outcome, fmt.Errorf("record ledger entry for %s: %w", msg.ExternalID, err)
	}
	s.metrics.RecordIntakeOutcome(mailbox.TenantID, outcome)
	return outcome, nil
}

// dispose runs matching and the append/create/skip decision, converting any
// failure (including panics) into a FAILED outcome.
func (s *Service) dispose(ctx context.Context, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) (outcome domain.LedgerOutcome, ticketID *string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.OutcomeFailed
			ticketID = nil
			err = apperrors.NewProcessingFailure(fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	ticket, err := s.matchTicket(ctx, msg, mailbox)
	if err != nil {
		return domain.OutcomeFailed, nil, err
	}

	if ticket != nil {
		if err := s.appendInbound(ctx, ticket, msg, mailbox); err != nil {
			return domain.OutcomeFailed, &ticket.ID, err
		}
		return domain.OutcomeAppended, &ticket.ID, nil
	}

	if !mailbox.AutoCreateTickets {
		return domain.OutcomeSkipped, nil, nil
	}

	created, err := s.createTicket(ctx, msg, mailbox)
	if err != nil {
		return domain.OutcomeFailed, nil, err
	}
	return domain.OutcomeCreated, &created.ID, nil
}

// matchTicket tries the correlation tiers in strict order: correlation
// header, subject-line ticket-number token, then thread references. A hit on
// a foreign tenant's ticket is discarded (defense in depth) and the message
// falls through to no-match.
func (s *Service) matchTicket(ctx context.Context, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) (*domain.Ticket, error) {
	if headerID := strings.TrimSpace(msg.Header(mail.CorrelationHeader)); headerID != "" {
		ticket, err := s.tickets.GetByID(ctx, headerID)
		if err == nil {
			return s.guardTenant(ticket, mailbox), nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	if token := ticketnumber.FindToken(msg.Subject); token != "" {
		ticket, err := s.tickets.GetByNumber(ctx, token)
		if err == nil {
			return s.guardTenant(ticket, mailbox), nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	if refs := msg.ThreadReferences(); len(refs) > 0 {
		ticketID, err := s.messages.FindTicketIDByExternalMessageID(ctx, refs)
		if err == nil {
			ticket, err := s.tickets.GetByID(ctx, ticketID)
			if err == nil {
				return s.guardTenant(ticket, mailbox), nil
			}
			if !apperrors.IsNotFound(err) {
				return nil, err
			}
		} else if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	return nil, nil
}

func (s *Service) guardTenant(ticket *domain.Ticket, mailbox *domain.MailboxConfig) *domain.Ticket {
	if ticket.TenantID != mailbox.TenantID {
		s.logger.Warn("cross-tenant correlation discarded",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_tenant", ticket.TenantID),
			zap.String("mailbox_tenant", mailbox.TenantID))
		return nil
	}
	return ticket
}

func (s *Service) appendInbound(ctx context.Context, ticket *domain.Ticket, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) error {
	message, err := s.storeMessage(ctx, ticket, msg, mailbox)
	if err != nil {
		return err
	}

	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMessageAppended,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.MessageAppendedPayload{
			MessageID:   message.ID,
			Direction:   domain.DirectionInbound,
			SenderEmail: msg.SenderEmail,
			BodyPreview: preview(msg.Body),
		},
	})
	return nil
}

func (s *Service) createTicket(ctx context.Context, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) (*domain.Ticket, error) {
	// Classification is advisory; a classifier failure never blocks creation.
	suggestion, err := s.classifier.Classify(ctx, msg.Subject, msg.Body, mailbox.TenantID)
	if err != nil {
		s.logger.Warn("classifier failed", zap.Error(err),
			zap.String("external_message_id", msg.ExternalID))
		suggestion = classify.Suggestion{}
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		TenantID:       mailbox.TenantID,
		Subject:        msg.Subject,
		Description:    s.truncateBody(msg.Body),
		Priority:       mailbox.DefaultPriority,
		Source:         domain.TicketSourceEmail,
		RequesterEmail: msg.SenderEmail,
		RequesterName:  msg.SenderName,
		Classification: suggestionPayload(suggestion),
	}
	s.machine.NewTicket(ticket)

	decision := s.route(ctx, ticket, msg)
	ticket.QueueID = decision.QueueID
	ticket.AssignedAgentID = decision.AutoAssignAgentID
	if decision.AutoPriority != nil {
		ticket.Priority = *decision.AutoPriority
	}
	ticket.Tags = decision.AutoTags

	if err := s.createWithFreshNumber(ctx, ticket); err != nil {
		return nil, err
	}

	if _, err := s.storeMessage(ctx, ticket, msg, mailbox); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Number:         ticket.Number,
			Source:         ticket.Source,
			Priority:       ticket.Priority,
			QueueID:        ticket.QueueID,
			RequesterEmail: ticket.RequesterEmail,
			Subject:        ticket.Subject,
		},
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRouted,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TicketRoutedPayload{
			QueueID:           decision.QueueID,
			MatchedRuleID:     decision.MatchedRuleID,
			IsDefaultFallback: decision.IsDefaultFallback,
		},
	})
	return ticket, nil
}

func (s *Service) route(ctx context.Context, ticket *domain.Ticket, msg *mail.InboundMessage) routing.Decision {
	rules, err := s.rules.ListByTenant(ctx, ticket.TenantID)
	if err != nil {
		s.logger.Warn("load routing rules failed", zap.Error(err),
			zap.String("tenant_id", ticket.TenantID))
		rules = nil
	}

	defaultQueue, err := s.queues.GetDefaultForTenant(ctx, ticket.TenantID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("load default queue failed", zap.Error(err),
				zap.String("tenant_id", ticket.TenantID))
		}
		defaultQueue = nil
	}

	return s.engine.Evaluate(routing.Context{
		TenantID:       ticket.TenantID,
		SenderDomain:   senderDomain(msg.SenderEmail),
		Subject:        msg.Subject,
		Body:           msg.Body,
		RequesterEmail: msg.SenderEmail,
		Tags:           ticket.Tags,
	}, rules, defaultQueue)
}

// createWithFreshNumber allocates a ticket number and inserts, retrying on
// number collisions. Allocation is scan-max-then-increment with no
// transactional isolation; the unique index on the number column plus this
// loop makes concurrent same-day creation safe.
func (s *Service) createWithFreshNumber(ctx context.Context, ticket *domain.Ticket) error {
	var lastErr error
	for attempt := 0; attempt < s.numberRetries; attempt++ {
		number, err := s.allocator.Next(ctx)
		if err != nil {
			return err
		}
		ticket.Number = number

		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			return nil
		}
		if !repository.IsUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("ticket number allocation exhausted after %d attempts: %w", s.numberRetries, lastErr)
}

// storeMessage persists the inbound TicketMessage and captures attachments.
func (s *Service) storeMessage(ctx context.Context, ticket *domain.Ticket, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) (*domain.TicketMessage, error) {
	externalID := msg.ExternalID
	message := &domain.TicketMessage{
		ID:                uuid.NewString(),
		TicketID:          ticket.ID,
		Direction:         domain.DirectionInbound,
		SenderEmail:       msg.SenderEmail,
		SenderName:        msg.SenderName,
		Body:              msg.Body,
		ExternalMessageID: &externalID,
		CreatedAt:         s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	if msg.HasAttachments {
		if err := s.captureAttachments(ctx, message, msg, mailbox); err != nil {
			return nil, err
		}
	}
	return message, nil
}

func (s *Service) captureAttachments(ctx context.Context, message *domain.TicketMessage, msg *mail.InboundMessage, mailbox *domain.MailboxConfig) error {
	attachments, err := s.inbox.FetchAttachments(ctx, mailbox.Address, msg.ExternalID)
	if err != nil {
		return fmt.Errorf("fetch attachments for %s: %w", msg.ExternalID, err)
	}

	for _, att := range attachments {
		handle, err := s.store.Save(ctx, bytes.NewReader(att.Data), att.Filename, att.ContentType)
		if err != nil {
			return fmt.Errorf("store attachment %q: %w", att.Filename, err)
		}
		ref := &domain.AttachmentReference{
			ID:              uuid.NewString(),
			TicketMessageID: message.ID,
			StorageKey:      handle,
			FileName:        att.Filename,
			MimeType:        att.ContentType,
			SizeBytes:       int64(len(att.Data)),
			CreatedAt:       s.now(),
		}
		if err := s.attachments.Create(ctx, ref); err != nil {
			return err
		}
		message.Attachments = append(message.Attachments, *ref)
	}
	return nil
}

func (s *Service) truncateBody(body string) string {
	if s.maxBodyBytes > 0 && len(body) > s.maxBodyBytes {
		return trimToRune(body, s.maxBodyBytes)
	}
	return body
}

// trimToRune cuts s to at most max bytes without splitting a UTF-8 rune.
func trimToRune(s string, max int) string {
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}

func suggestionPayload(suggestion classify.Suggestion) map[string]any {
	payload := map[string]any{
		"confidence": suggestion.Confidence,
		"model_id":   suggestion.ModelID,
	}
	if suggestion.SuggestedQueueName != "" {
		payload["suggested_queue_name"] = suggestion.SuggestedQueueName
	}
	if suggestion.SuggestedIssueType != "" {
		payload["suggested_issue_type"] = suggestion.SuggestedIssueType
	}
	if len(suggestion.SuggestedTags) > 0 {
		payload["suggested_tags"] = suggestion.SuggestedTags
	}
	if len(suggestion.Raw) > 0 {
		payload["raw"] = suggestion.Raw
	}
	return payload
}

func senderDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
		return email[at+1:]
	}
	return ""
}

func preview(body string) string {
	const max = 120
	if len(body) > max {
		return trimToRune(body, max)
	}
	return body
}
