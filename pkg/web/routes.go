package web

import "github.com/gofiber/fiber/v3"

// Register mounts the API routes on router. Middleware passed in runs before every route.
func (h *APIHandlers) Register(router fiber.Router, middleware ...fiber.Handler) {
	p := router.Group("/projects", middleware...)
	p.Get("/", h.GetProjects)
	p.Post("/", h.CreateProject)

	w := router.Group("/workflows", middleware...)
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Put("/:id/flow", h.SaveWorkflowFlow)
	w.Patch("/:id/status", h.UpdateWorkflowStatus)
	w.Post("/:id/execute", h.ExecuteWorkflow)

	t := router.Group("/threads", middleware...)
	t.Delete("/:id", h.DeleteThread)

	router.Get("/health", h.HealthCheck)
}
