package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/api/http/handlers"
	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/observability"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Tokens  *auth.TokenManager

	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Tickets *handlers.TicketHandler
	Routing *handlers.RoutingHandler
}

// NewApp builds the fiber application with all routes registered.
func NewApp(deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "mailroom",
		ReadTimeout:  deps.Config.App.RequestTimeout(),
		WriteTimeout: deps.Config.App.RequestTimeout(),
		ErrorHandler: ErrorHandler(deps.Logger, deps.Metrics),
	})

	app.Use(Recover(deps.Logger))
	app.Use(observability.RequestLogger(deps.Logger, deps.Metrics))

	app.Get("/healthz", deps.Health.Live)
	app.Get("/readyz", deps.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/auth/login", deps.Auth.Login)

	authed := api.Group("", auth.Middleware(deps.Tokens))
	authed.Get("/auth/me", deps.Auth.Me)
	authed.Get("/stats/intake", deps.Health.IntakeStats)

	tickets := authed.Group("/tickets")
	tickets.Get("/", deps.Tickets.List)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Get("/:id/messages", deps.Tickets.Messages)
	tickets.Post("/:id/transition", deps.Tickets.Transition)
	tickets.Post("/:id/assign", deps.Tickets.Assign)
	tickets.Post("/:id/reply", deps.Tickets.Reply)

	admin := authed.Group("", auth.RequireRole(domain.AgentRoleAdmin))
	admin.Get("/routing-rules", deps.Routing.ListRules)
	admin.Post("/routing-rules", deps.Routing.CreateRule)
	admin.Put("/routing-rules/:id", deps.Routing.UpdateRule)
	admin.Delete("/routing-rules/:id", deps.Routing.DeleteRule)
	admin.Get("/queues", deps.Routing.ListQueues)
	admin.Post("/queues", deps.Routing.CreateQueue)
	admin.Put("/queues/:id", deps.Routing.UpdateQueue)
	admin.Get("/mailboxes", deps.Routing.ListMailboxes)
	admin.Post("/mailboxes", deps.Routing.CreateMailbox)
	admin.Put("/mailboxes/:id", deps.Routing.UpdateMailbox)

	return app
}
