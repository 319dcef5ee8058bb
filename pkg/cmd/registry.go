// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/validation"
)

func NewRegistry(ctx context.Context, logger *slog.Logger) *registry.Registry {
	reg := registry.NewDefaultRegistry(logger)

	message, _ := reg.HealthCheck()
	logger.DebugContext(ctx, "Node registry ready", "detail", message)

	return reg
}

// NewValidator loads the rule table at rulesPath over the built-in defaults. An empty path keeps the defaults.
func NewValidator(logger *slog.Logger, reg *registry.Registry, rulesPath string) (*validation.Validator, error) {
	if rulesPath == "" {
		return validation.NewDefault(logger, reg), nil
	}

	rules, err := validation.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}

	return validation.New(logger, reg, rules)
}
