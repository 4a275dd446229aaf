package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	apihttp "github.com/spec-kit/mailroom/internal/api/http"
	"github.com/spec-kit/mailroom/internal/api/http/handlers"
	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/classify"
	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/intake"
	"github.com/spec-kit/mailroom/internal/lifecycle"
	"github.com/spec-kit/mailroom/internal/mail"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/persistence"
	"github.com/spec-kit/mailroom/internal/poller"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/routing"
	"github.com/spec-kit/mailroom/internal/service"
	"github.com/spec-kit/mailroom/internal/storage"
	"github.com/spec-kit/mailroom/internal/ticketnumber"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	pool := postgres.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	ruleRepo := repository.NewRoutingRuleRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	mailboxRepo := repository.NewMailboxConfigRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	events.NewRedisPublisher(redisConn.Client, cfg.Redis.EventChannel, logger).RegisterAll(dispatcher)
	service.NewNotificationService(logger).Register(dispatcher)

	attachmentStore, err := storage.NewFilesystemStore(cfg.Storage.AttachmentRoot)
	if err != nil {
		logger.Fatal("attachment store init failed", zap.Error(err))
	}

	machine := lifecycle.New()

	intakeSvc := intake.NewService(intake.Dependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		RuleRepo:       ruleRepo,
		QueueRepo:      queueRepo,
		LedgerRepo:     ledgerRepo,
		Inbox:          mail.NopInbox{},
		Store:          attachmentStore,
		Classifier:     classify.NewNoop(),
		Engine:         routing.NewEngine(),
		Machine:        machine,
		Allocator:      ticketnumber.NewAllocator(ticketRepo),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		NumberRetries:  cfg.Intake.NumberAllocRetries,
		MaxBodyBytes:   cfg.Intake.MaxBodyBytes,
	})

	tokens := auth.NewTokenManager(cfg.Auth)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	authSvc := service.NewAuthService(agentRepo, tokens, hasher, logger)

	ticketSvc := service.NewTicketService(service.TicketServiceDeps{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		AgentRepo:   agentRepo,
		Machine:     machine,
		Outbox:      mail.NewLogOutbox(logger),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	adminSvc := service.NewRoutingAdminService(service.RoutingAdminDeps{
		RuleRepo:    ruleRepo,
		QueueRepo:   queueRepo,
		MailboxRepo: mailboxRepo,
		AgentRepo:   agentRepo,
		Logger:      logger,
	})

	mailboxPoller := poller.New(mailboxRepo, intakeSvc, logger, metrics, cfg.Poller)
	if cfg.Poller.Enabled {
		if err := mailboxPoller.Start(cfg.Poller.ScanCron); err != nil {
			logger.Fatal("poller start failed", zap.Error(err))
		}
	}

	app := apihttp.NewApp(apihttp.RouterDeps{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Tokens:  tokens,
		Health:  handlers.NewHealthHandler(postgres, redisConn, metrics),
		Auth:    handlers.NewAuthHandler(authSvc),
		Tickets: handlers.NewTicketHandler(ticketSvc, authSvc),
		Routing: handlers.NewRoutingHandler(adminSvc),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	mailboxPoller.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
