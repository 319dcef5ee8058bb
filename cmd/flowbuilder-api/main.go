package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/machinehq/flowbuilder/pkg/cmd"
	"github.com/machinehq/flowbuilder/pkg/log"
	"github.com/machinehq/flowbuilder/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowbuilder-api",
		Usage:                 "Serve projects, workflows and threads for the workflow builder",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path or postgres:// URL)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers, used with --event-bus=kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Bearer token required on API routes; empty disables auth",
				Sources: cli.EnvVars("FLOWBUILDER_TOKEN"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP (configure with OTEL_EXPORTER_OTLP_ENDPOINT)",
				Sources: cli.EnvVars("FLOWBUILDER_OTEL"),
			},
			&cli.FloatFlag{
				Name:    "otel-sample-ratio",
				Usage:   "Fraction of new traces to sample",
				Value:   1,
				Sources: cli.EnvVars("FLOWBUILDER_OTEL_SAMPLE_RATIO"),
			},
			&cli.BoolFlag{
				Name:    "watch-executions",
				Usage:   "Log execution requests published on the event bus",
				Sources: cli.EnvVars("FLOWBUILDER_WATCH_EXECUTIONS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWriter(os.Stderr, command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing flowbuilder API")

			var tracer trace.Tracer

			if command.Bool("otel") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "flowbuilder-api",
					otelhelper.WithSampleRatio(command.Float("otel-sample-ratio")))
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			registry := cmd.NewRegistry(ctx, logger)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				tracer,
				command.String("api-token"),
			)

			if command.Bool("watch-executions") {
				if err := api.WatchExecutions(ctx); err != nil {
					return fmt.Errorf("failed to watch executions: %w", err)
				}
			}

			return api.Run(ctx, int(command.Int("port")))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("api").Error("API stopped", "error", err)
		os.Exit(1)
	}
}
