package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planwise/planwise/internal/store"
)

func validTaskStatus(status string) bool {
	switch status {
	case store.TaskTodo, store.TaskInProgress, store.TaskDone:
		return true
	}
	return false
}

// CreateTask handles POST /api/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if req.Title == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Task title is required")
	}
	if req.Status != "" && !validTaskStatus(req.Status) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Unknown task status: "+req.Status)
	}

	task := &store.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Deadline:    timePtrToMs(req.Deadline),
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
	}
	if err := h.store.CreateTask(task); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTaskDTO(task))
}

// UpdateTask handles PUT /api/tasks/:id. Admins and managers may update any
// task; a developer may only update a task assigned to them.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	task, err := h.store.GetTask(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if task == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Task not found")
	}

	role := callerRole(c)
	if role != RoleAdmin && role != RoleManager && task.AssigneeID != callerID(c) {
		return problemResponse(c, fiber.StatusForbidden,
			"forbidden", "Forbidden", "Only the assignee may update this task")
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Status != "" {
		if !validTaskStatus(req.Status) {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_input", "Bad Request", "Unknown task status: "+req.Status)
		}
		task.Status = req.Status
	}
	if req.Deadline != nil {
		task.Deadline = req.Deadline.UnixMilli()
	}
	if req.ProjectID != "" {
		task.ProjectID = req.ProjectID
	}
	if req.AssigneeID != "" {
		task.AssigneeID = req.AssigneeID
	}

	if err := h.store.UpdateTask(task); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(toTaskDTO(task))
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	found, err := h.store.DeleteTask(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Task not found")
	}
	return c.JSON(fiber.Map{"message": "Deleted"})
}

// ListTasks handles GET /api/tasks with optional project/assignee/status
// filters.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	filter := store.TaskFilter{
		ProjectID:  c.Query("projectId"),
		AssigneeID: c.Query("assigneeId"),
		Status:     c.Query("status"),
	}

	tasks, err := h.store.ListTasks(filter)
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]TaskDTO, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskDTO(&tasks[i]))
	}
	return c.JSON(out)
}

// TaskSummary handles GET /api/tasks/reports/summary.
func (h *Handlers) TaskSummary(c *fiber.Ctx) error {
	summary, err := h.store.SummarizeTasks()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(TaskSummaryResponse{ByStatus: summary.ByStatus, Overdue: summary.Overdue})
}
