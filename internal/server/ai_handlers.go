package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// GenerateStories handles POST /api/ai/generate-user-stories.
func (h *Handlers) GenerateStories(c *fiber.Ctx) error {
	var req GenerateStoriesRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	result, err := h.stories.GenerateStories(c.Context(), req.ProjectDescription, req.ProjectID)
	if err != nil {
		return serviceError(c, err)
	}

	resp := GenerateStoriesResponse{
		Success:     true,
		UserStories: result.Stories,
		Message:     fmt.Sprintf("Generated %d user stories successfully", len(result.Stories)),
	}
	if result.Saved != nil {
		resp.SavedStories = make([]StoryDTO, 0, len(result.Saved))
		for i := range result.Saved {
			resp.SavedStories = append(resp.SavedStories, toStoryDTO(&result.Saved[i]))
		}
	}
	return c.JSON(resp)
}

// ListStories handles GET /api/ai/user-stories/:projectId.
func (h *Handlers) ListStories(c *fiber.Ctx) error {
	list, err := h.stories.ListStories(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]StoryDTO, 0, len(list))
	for i := range list {
		out = append(out, toStoryDTO(&list[i]))
	}
	return c.JSON(out)
}

// ConvertStory handles POST /api/ai/user-stories/:storyId/convert-to-task.
func (h *Handlers) ConvertStory(c *fiber.Ctx) error {
	var req ConvertStoryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
		}
	}

	task, story, err := h.stories.ConvertToTask(c.Context(), c.Params("storyId"), req.AssignedTo, req.Deadline)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(ConvertStoryResponse{
		Success: true,
		Task:    toTaskDTO(task),
		Story:   toStoryDTO(story),
	})
}

// UpdateStoryStatus handles PUT /api/ai/user-stories/:storyId/status.
func (h *Handlers) UpdateStoryStatus(c *fiber.Ctx) error {
	var req UpdateStoryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	story, err := h.stories.UpdateStatus(c.Context(), c.Params("storyId"), req.Status)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(toStoryDTO(story))
}

// DeleteStory handles DELETE /api/ai/user-stories/:storyId.
func (h *Handlers) DeleteStory(c *fiber.Ctx) error {
	if err := h.stories.Delete(c.Context(), c.Params("storyId")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User story deleted successfully"})
}
