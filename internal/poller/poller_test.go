package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/observability"
)

type stubMailboxRepo struct {
	mu      sync.Mutex
	due     []domain.MailboxConfig
	findErr error
	polled  []string
}

func (r *stubMailboxRepo) Create(context.Context, *domain.MailboxConfig) error { return nil }
func (r *stubMailboxRepo) Update(context.Context, *domain.MailboxConfig) error { return nil }
func (r *stubMailboxRepo) GetByID(context.Context, string) (*domain.MailboxConfig, error) {
	return nil, errors.New("not implemented")
}
func (r *stubMailboxRepo) ListByTenant(context.Context, string) ([]domain.MailboxConfig, error) {
	return nil, nil
}

func (r *stubMailboxRepo) FindDue(context.Context, time.Time) ([]domain.MailboxConfig, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.due, nil
}

func (r *stubMailboxRepo) MarkPolled(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polled = append(r.polled, id)
	return nil
}

type stubProcessor struct {
	mu      sync.Mutex
	runs    []string
	failFor map[string]error
}

func (p *stubProcessor) ProcessMailbox(_ context.Context, mailbox *domain.MailboxConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, mailbox.ID)
	if err, ok := p.failFor[mailbox.ID]; ok {
		return err
	}
	return nil
}

func newTestPoller(repo *stubMailboxRepo, proc *stubProcessor) *Poller {
	return New(repo, proc, zap.NewNop(), observability.NewMetrics(), config.PollerConfig{
		RunTimeoutSeconds: 5,
		MaxConcurrentRuns: 4,
	})
}

func TestScanRunsAllDueMailboxes(t *testing.T) {
	repo := &stubMailboxRepo{due: []domain.MailboxConfig{
		{ID: "mb-1", Address: "a@x.example"},
		{ID: "mb-2", Address: "b@x.example"},
		{ID: "mb-3", Address: "c@x.example"},
	}}
	proc := &stubProcessor{}
	p := newTestPoller(repo, proc)

	p.Scan(context.Background())
	p.wg.Wait()

	assert.ElementsMatch(t, []string{"mb-1", "mb-2", "mb-3"}, proc.runs)
	assert.ElementsMatch(t, []string{"mb-1", "mb-2", "mb-3"}, repo.polled)
}

func TestScanFailureIsolation(t *testing.T) {
	repo := &stubMailboxRepo{due: []domain.MailboxConfig{
		{ID: "mb-bad", Address: "bad@x.example"},
		{ID: "mb-good", Address: "good@x.example"},
	}}
	proc := &stubProcessor{failFor: map[string]error{"mb-bad": errors.New("imap down")}}
	p := newTestPoller(repo, proc)

	p.Scan(context.Background())
	p.wg.Wait()

	assert.ElementsMatch(t, []string{"mb-bad", "mb-good"}, proc.runs, "failure on one mailbox must not block others")
	assert.Equal(t, []string{"mb-good"}, repo.polled, "failed run is not marked polled")
}

func TestScanFindDueErrorIsSwallowed(t *testing.T) {
	repo := &stubMailboxRepo{findErr: errors.New("db gone")}
	proc := &stubProcessor{}
	p := newTestPoller(repo, proc)

	p.Scan(context.Background())
	p.wg.Wait()
	assert.Empty(t, proc.runs)
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	p := newTestPoller(&stubMailboxRepo{}, &stubProcessor{})
	err := p.Start("not a cron spec")
	require.Error(t, err)
}
