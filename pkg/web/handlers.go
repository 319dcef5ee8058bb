// Package web provides the HTTP handlers of the workflow builder API.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/services"
)

type APIHandlers struct {
	workflowService *services.Workflow
	projectService  *services.Project
	threadService   *services.Thread
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	projectService *services.Project,
	threadService *services.Thread,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		projectService:  projectService,
		threadService:   threadService,
		validator:       validator,
		registry:        registry,
	}
}

func (h *APIHandlers) GetProjects(c fiber.Ctx) error {
	projects, err := h.projectService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(projects)
}

func (h *APIHandlers) CreateProject(c fiber.Ctx) error {
	var req models.CreateProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	project, err := h.projectService.Create(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetWorkflows lists workflows, optionally filtered by the project_id query parameter.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.ListByProject(c.Context(), c.Query("project_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req models.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req models.UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	_, err := h.workflowService.Update(c.Context(), id, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SaveWorkflowFlow receives the autosaved canvas.
func (h *APIHandlers) SaveWorkflowFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req models.AutoSaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	for _, node := range req.Nodes {
		if node == nil {
			return badRequest(c, "Nodes cannot be null")
		}

		if err := h.validator.Struct(node); err != nil {
			return badRequest(c, err.Error())
		}
	}

	for _, edge := range req.Edges {
		if edge == nil {
			return badRequest(c, "Edges cannot be null")
		}

		if err := h.validator.Struct(edge); err != nil {
			return badRequest(c, err.Error())
		}
	}

	_, err := h.workflowService.SaveFlow(c.Context(), id, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) UpdateWorkflowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req models.UpdateStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	_, err := h.workflowService.UpdateStatus(c.Context(), id, req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	thread, err := h.workflowService.Execute(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(models.ExecuteWorkflowResponse{ThreadID: thread.ID})
}

func (h *APIHandlers) DeleteThread(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Thread ID is required")
	}

	err := h.threadService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowbuilder API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowbuilder API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
