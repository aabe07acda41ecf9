package web

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *WebModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)
	app.Get("/metrics", m.metrics.handler())

	// HTML form page
	app.Get("/", m.showPage)
	app.Post("/", m.submitForm)

	// API v1 routes
	api := app.Group("/api/v1")

	tasks := api.Group("/tasks")
	tasks.Get("/", m.listTasks)
	tasks.Post("/", m.createTask)
	tasks.Post("/:id/complete", m.completeTask)
	tasks.Delete("/:id", m.deleteTask)

	api.Get("/activity", m.recentActivity)
}

// healthHandler handles GET /health.
func (m *WebModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "web",
			"addr":   m.addr,
		},
	})
}

// showPage handles GET /.
func (m *WebModule) showPage(c *fiber.Ctx) error {
	return m.renderPage(c, "")
}

// submitForm handles POST /: parse, dispatch, then re-render with the
// confirmation of whichever action ran.
func (m *WebModule) submitForm(c *fiber.Ctx) error {
	req := ParseRequest(FormValues{
		Action:      c.FormValue("action"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		ID:          c.FormValue("id"),
	})
	m.metrics.observeAction(req)

	message, err := m.dispatch(c.Context(), req)
	if err != nil {
		return m.storeFailure(c, err)
	}
	return m.renderPage(c, message)
}

// dispatch runs the store operation for req and returns its confirmation.
// Unknown requests return an empty message and touch nothing.
func (m *WebModule) dispatch(ctx context.Context, req Request) (string, error) {
	switch r := req.(type) {
	case AddTask:
		resp, err := m.tasks.AddTask(ctx, r.Title, r.Description)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	case CompleteTask:
		resp, err := m.tasks.CompleteTask(ctx, r.ID)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	case DeleteTask:
		resp, err := m.tasks.DeleteTask(ctx, r.ID)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	default:
		m.logger.Debug("ignoring form submission", "action", r.kind())
		return "", nil
	}
}

func (m *WebModule) renderPage(c *fiber.Ctx, message string) error {
	listed, err := m.tasks.ListTasks(c.Context())
	if err != nil {
		return m.storeFailure(c, err)
	}

	body, err := renderPage(pageData{Message: message, Tasks: listed.Tasks})
	if err != nil {
		return err
	}

	c.Type("html", "utf-8")
	return c.Send(body)
}

// storeFailure aborts the page with the underlying store error text.
func (m *WebModule) storeFailure(c *fiber.Ctx, err error) error {
	m.logger.Error("task store unavailable", "error", err)
	c.Type("txt", "utf-8")
	return c.Status(fiber.StatusInternalServerError).SendString("Database error: " + err.Error())
}

// listTasks handles GET /api/v1/tasks.
func (m *WebModule) listTasks(c *fiber.Ctx) error {
	resp, err := m.tasks.ListTasks(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(resp)
}

// createTask handles POST /api/v1/tasks.
func (m *WebModule) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	resp, err := m.tasks.AddTask(c.Context(), req.Title, req.Description)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "create_failed",
			Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// completeTask handles POST /api/v1/tasks/:id/complete.
func (m *WebModule) completeTask(c *fiber.Ctx) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Task ID must be an integer",
		})
	}

	resp, err := m.tasks.CompleteTask(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "complete_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(resp)
}

// deleteTask handles DELETE /api/v1/tasks/:id.
func (m *WebModule) deleteTask(c *fiber.Ctx) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Task ID must be an integer",
		})
	}

	resp, err := m.tasks.DeleteTask(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "delete_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(resp)
}

// recentActivity handles GET /api/v1/activity.
func (m *WebModule) recentActivity(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "limit must be a non-negative integer",
		})
	}

	resp, err := m.activity.RecentActivity(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "activity_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(resp)
}
