// Package poller schedules mailbox polling runs.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/repository"
)

// Processor consumes a single mailbox. Satisfied by intake.Service.
type Processor interface {
	ProcessMailbox(ctx context.Context, mailbox *domain.MailboxConfig) error
}

// Poller periodically scans for due mailboxes and runs the intake
// processor against each one. A failure on one mailbox never blocks
// the others.
type Poller struct {
	mailboxes  repository.MailboxConfigRepository
	processor  Processor
	logger     *zap.Logger
	metrics    *observability.Metrics
	runTimeout time.Duration
	sem        chan struct{}
	now        func() time.Time

	cron *cron.Cron
	wg   sync.WaitGroup
}

func New(
	mailboxes repository.MailboxConfigRepository,
	processor Processor,
	logger *zap.Logger,
	metrics *observability.Metrics,
	cfg config.PollerConfig,
) *Poller {
	concurrent := cfg.MaxConcurrentRuns
	if concurrent <= 0 {
		concurrent = 1
	}
	return &Poller{
		mailboxes:  mailboxes,
		processor:  processor,
		logger:     logger,
		metrics:    metrics,
		runTimeout: cfg.RunTimeout(),
		sem:        make(chan struct{}, concurrent),
		now:        time.Now,
	}
}

// Start registers the scan job and launches the scheduler. The cron
// expression carries a seconds field, matching the config default.
func (p *Poller) Start(spec string) error {
	p.cron = cron.New(cron.WithSeconds())
	if _, err := p.cron.AddFunc(spec, func() { p.Scan(context.Background()) }); err != nil {
		return err
	}
	p.cron.Start()
	p.logger.Info("mailbox poller started", zap.String("schedule", spec))
	return nil
}

// Stop halts the scheduler and waits for in-flight runs to drain.
func (p *Poller) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
	p.wg.Wait()
}

// Scan finds due mailboxes and dispatches a bounded run for each.
func (p *Poller) Scan(ctx context.Context) {
	due, err := p.mailboxes.FindDue(ctx, p.now())
	if err != nil {
		p.logger.Error("mailbox scan failed", zap.Error(err))
		return
	}
	for i := range due {
		mailbox := due[i]
		p.sem <- struct{}{}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer func() { <-p.sem }()
			p.runOne(ctx, &mailbox)
		}()
	}
}

func (p *Poller) runOne(ctx context.Context, mailbox *domain.MailboxConfig) {
	runCtx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()

	polledAt := p.now()
	if err := p.processor.ProcessMailbox(runCtx, mailbox); err != nil {
		p.metrics.RecordMailboxFailure(mailbox.ID)
		p.logger.Warn("mailbox poll run failed",
			zap.String("mailbox_id", mailbox.ID),
			zap.String("address", mailbox.Address),
			zap.Error(err))
		return
	}
	if err := p.mailboxes.MarkPolled(runCtx, mailbox.ID, polledAt); err != nil {
		p.logger.Error("marking mailbox polled failed",
			zap.String("mailbox_id", mailbox.ID), zap.Error(err))
	}
}
