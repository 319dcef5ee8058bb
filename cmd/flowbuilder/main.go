// Command flowbuilder validates, pushes and runs workflow graphs against a flowbuilder API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/machinehq/flowbuilder/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowbuilder",
		Usage:                 "Validate, push and run workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the flowbuilder API",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("FLOWBUILDER_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent with every request",
				Sources: cli.EnvVars("FLOWBUILDER_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "rules",
				Usage:   "YAML file overriding the built-in validation rules",
				Sources: cli.EnvVars("FLOWBUILDER_RULES"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for each API request",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			pushCommand(),
			runCommand(),
			statusCommand(),
			projectsCommand(),
			threadsCommand(),
			templatesCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
