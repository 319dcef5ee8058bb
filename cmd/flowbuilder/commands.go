package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/machinehq/flowbuilder/pkg/client"
	"github.com/machinehq/flowbuilder/pkg/cmd"
	"github.com/machinehq/flowbuilder/pkg/editor"
	"github.com/machinehq/flowbuilder/pkg/log"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/templates"
	"github.com/machinehq/flowbuilder/pkg/validation"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	errArgumentRequired = errors.New("missing argument")
	errInvalidWorkflow  = errors.New("workflow is invalid")
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a workflow file against the validation rules",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflow, err := readWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			validator, err := newValidator(ctx, command)
			if err != nil {
				return err
			}

			result := validator.Validate(workflow.Definition.Nodes, workflow.Definition.Edges)
			out := command.Root().Writer

			if command.Bool("json") {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")

				if err := encoder.Encode(result); err != nil {
					return err
				}
			} else {
				printIssues(out, result)
			}

			if !result.Valid {
				return errInvalidWorkflow
			}

			return nil
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Create or update a workflow from a file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "Project receiving a new workflow"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflow, err := readWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			builder, err := newBuilder(ctx, command)
			if err != nil {
				return err
			}
			defer builder.Close()

			builder.Import(workflow)

			if project := command.String("project"); project != "" {
				builder.SetProject(project)
			}

			if err := builder.Save(ctx); err != nil {
				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, builder.WorkflowID())

			return err
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute a saved workflow and print the thread id",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: workflow id", errArgumentRequired)
			}

			builder, err := newBuilder(ctx, command)
			if err != nil {
				return err
			}
			defer builder.Close()

			if err := builder.Load(ctx, id); err != nil {
				return err
			}

			threadID, err := builder.Run(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, threadID)

			return err
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Toggle a workflow between active and paused, or set a status",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "set", Usage: "Status to set (draft, active, paused, disabled, archived)"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: workflow id", errArgumentRequired)
			}

			out := command.Root().Writer

			if raw := command.String("set"); raw != "" {
				status := models.WorkflowStatus(strings.ToLower(raw))
				if !status.IsValid() {
					return fmt.Errorf("invalid status %q", raw)
				}

				if err := newClient(command).UpdateWorkflowStatus(ctx, id, status); err != nil {
					return err
				}

				_, err := fmt.Fprintln(out, status)

				return err
			}

			builder, err := newBuilder(ctx, command)
			if err != nil {
				return err
			}
			defer builder.Close()

			if err := builder.Load(ctx, id); err != nil {
				return err
			}

			status, err := builder.ToggleStatus(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(out, status)

			return err
		},
	}
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List projects",
		Action: func(ctx context.Context, command *cli.Command) error {
			projects, err := newClient(command).GetProjects(ctx)
			if err != nil {
				return err
			}

			out := command.Root().Writer
			for _, project := range projects {
				if _, err := fmt.Fprintf(out, "%s\t%s\n", project.ID, project.Name); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func threadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "Manage execution threads",
		Commands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "Delete threads, continuing past failures",
				ArgsUsage: "<thread-id>...",
				Action: func(ctx context.Context, command *cli.Command) error {
					ids := command.Args().Slice()
					if len(ids) == 0 {
						return fmt.Errorf("%w: thread id", errArgumentRequired)
					}

					result := newClient(command).DeleteThreads(ctx, ids)
					out := command.Root().Writer

					for _, id := range result.Succeeded {
						fmt.Fprintf(out, "deleted\t%s\n", id)
					}

					for _, id := range result.Failed {
						fmt.Fprintf(out, "failed\t%s\t%v\n", id, result.Errors[id])
					}

					if len(result.Failed) > 0 {
						return fmt.Errorf("%d of %d threads could not be deleted", len(result.Failed), len(ids))
					}

					return nil
				},
			},
		},
	}
}

func templatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List built-in templates, or print one as a workflow file",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print a template as a workflow file",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, command *cli.Command) error {
					tpl, err := templates.Get(command.Args().First())
					if err != nil {
						return err
					}

					encoder := json.NewEncoder(command.Root().Writer)
					encoder.SetIndent("", "  ")

					return encoder.Encode(models.Workflow{
						Name:        tpl.Name,
						Description: tpl.Description,
						Status:      models.WorkflowStatusDraft,
						Definition:  models.Definition{Nodes: tpl.Nodes, Edges: tpl.Edges},
					})
				},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			out := command.Root().Writer
			for _, name := range templates.Names() {
				if _, err := fmt.Fprintln(out, name); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func readWorkflow(path string) (*models.Workflow, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: workflow file", errArgumentRequired)
	}

	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}

	return &workflow, nil
}

func printIssues(out io.Writer, result validation.Result) {
	for _, issue := range result.Issues {
		target := issue.NodeID
		if target == "" {
			target = issue.EdgeID
		}

		if target == "" {
			target = "-"
		}

		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", issue.Type, issue.Rule, target, issue.Message)
	}

	if result.Valid {
		fmt.Fprintf(out, "valid (%d warnings)\n", len(result.Warnings()))

		return
	}

	fmt.Fprintf(out, "invalid (%d errors, %d warnings)\n", len(result.Errors()), len(result.Warnings()))
}

func newClient(command *cli.Command) *client.Client {
	opts := []client.Option{
		client.WithLogger(log.WithModule("cli")),
		client.WithHTTPClient(&http.Client{
			Timeout:   command.Duration("timeout"),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}

	if token := command.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}

	return client.New(command.String("api-url"), opts...)
}

func newValidator(ctx context.Context, command *cli.Command) (*validation.Validator, error) {
	logger := log.WithModule("cli")

	return cmd.NewValidator(logger, cmd.NewRegistry(ctx, logger), command.String("rules"))
}

func newBuilder(ctx context.Context, command *cli.Command) (*editor.Builder, error) {
	logger := log.WithModule("cli")
	reg := cmd.NewRegistry(ctx, logger)

	validator, err := cmd.NewValidator(logger, reg, command.String("rules"))
	if err != nil {
		return nil, err
	}

	return editor.NewBuilder(ctx, newClient(command), editor.Config{
		Logger:    logger,
		Registry:  reg,
		Validator: validator,
		Notifier:  editor.NewLogNotifier(logger),
	}), nil
}
