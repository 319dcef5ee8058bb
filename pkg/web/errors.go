package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/machinehq/flowbuilder/pkg/persistence"
	"github.com/machinehq/flowbuilder/pkg/services"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// Unauthorized renders the problem returned when the bearer token is missing or wrong.
func Unauthorized(c fiber.Ctx, _ error) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail("missing or invalid bearer token")

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

// handleServiceError maps service and persistence errors to RFC 7807 problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		kind := services.ErrorCode(err)
		if kind == "" {
			kind = "conflict"
		}

		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType(kind).
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsProjectNotFound(err):
		return notFound(c, "project_not_found", "project not found")

	case persistence.IsThreadNotFound(err):
		return notFound(c, "thread_not_found", "thread not found")

	default:
		// Unexpected errors keep their details out of the response.
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("internal server error")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
