// Package main provides the flowbuilder reference API server.
package main

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/keyauth"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/machinehq/flowbuilder/pkg/eventbus"
	"github.com/machinehq/flowbuilder/pkg/events"
	"github.com/machinehq/flowbuilder/pkg/persistence"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/services"
	"github.com/machinehq/flowbuilder/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
	token       string
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	token string,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		token:       token,
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, a.eventBus, a.tracer, a.logger)
	projectService := services.NewProject(a.persistence)
	threadService := services.NewThread(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(workflowService, projectService, threadService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowbuilder API")
	})

	var middleware []fiber.Handler
	if a.token != "" {
		middleware = append(middleware, keyauth.New(keyauth.Config{
			AuthScheme:   "Bearer",
			ErrorHandler: web.Unauthorized,
			Validator: func(_ fiber.Ctx, key string) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(a.token)) == 1, nil
			},
		}))
	}

	handlers.Register(app, middleware...)

	return app
}

// WatchExecutions logs every execution request the bus carries, for running without an execution backend.
func (a *API) WatchExecutions(ctx context.Context) error {
	err := eventbus.On(a.eventBus, events.WorkflowExecutionRequestedEvent,
		func(ctx context.Context, event *events.WorkflowExecutionRequested) error {
			a.logger.InfoContext(ctx, "Execution requested",
				"workflow_id", event.WorkflowID,
				"thread_id", event.ThreadID,
				"nodes", len(event.Definition.Nodes),
				"max_retries", event.Metadata.MaxRetries)

			return nil
		})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

// Run serves on port until ctx is cancelled, then shuts the server down.
func (a *API) Run(ctx context.Context, port int) error {
	app := a.App()
	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down API")

		return app.Shutdown()
	}
}
