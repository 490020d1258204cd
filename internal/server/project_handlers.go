package server

import (
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/planwise/planwise/internal/store"
)

func validProjectStatus(status string) bool {
	switch status {
	case store.ProjectPlanned, store.ProjectInProgress, store.ProjectCompleted, store.ProjectOnHold:
		return true
	}
	return false
}

func membersFromAssignments(assignments []MemberAssignment) []store.ProjectMember {
	members := make([]store.ProjectMember, 0, len(assignments))
	for _, a := range assignments {
		role := a.Role
		if role == "" {
			role = RoleDeveloper
		}
		members = append(members, store.ProjectMember{UserID: a.UserID, Role: role})
	}
	return members
}

// CreateProject handles POST /api/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Project name is required")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "End date must be equal or after start date")
	}
	if req.Status != "" && !validProjectStatus(req.Status) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Unknown project status: "+req.Status)
	}

	project := &store.Project{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   timePtrToMs(req.StartDate),
		EndDate:     timePtrToMs(req.EndDate),
		Status:      req.Status,
		ManagerID:   req.ManagerID,
		Members:     membersFromAssignments(req.MemberAssignments),
	}
	if err := h.store.CreateProject(project); err != nil {
		return serviceError(c, err)
	}

	created, err := h.store.GetProject(project.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProjectDTO(created))
}

// ListProjects handles GET /api/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.store.ListProjects()
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]ProjectDTO, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectDTO(&projects[i]))
	}
	return c.JSON(out)
}

// GetProject handles GET /api/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}
	return c.JSON(toProjectDTO(project))
}

// UpdateProject handles PUT /api/projects/:id. Fields are merged: only
// supplied values overwrite existing ones; members are replaced wholesale
// when an assignment list is present.
func (h *Handlers) UpdateProject(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if req.StartDate != nil {
		project.StartDate = req.StartDate.UnixMilli()
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate.UnixMilli()
	}
	if project.StartDate != 0 && project.EndDate != 0 && project.EndDate < project.StartDate {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "End date must be equal or after start date")
	}
	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Description != "" {
		project.Description = req.Description
	}
	if req.Status != "" {
		if !validProjectStatus(req.Status) {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_input", "Bad Request", "Unknown project status: "+req.Status)
		}
		project.Status = req.Status
	}
	if req.ManagerID != "" {
		project.ManagerID = req.ManagerID
	}
	if req.MemberAssignments != nil {
		project.Members = membersFromAssignments(req.MemberAssignments)
	}

	if err := h.store.UpdateProject(project); err != nil {
		return serviceError(c, err)
	}

	updated, err := h.store.GetProject(project.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(toProjectDTO(updated))
}

// DeleteProject handles DELETE /api/projects/:id. Tasks under the project
// are removed with it.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	found, err := h.store.DeleteProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}
	return c.JSON(fiber.Map{"message": "Deleted"})
}

func (h *Handlers) memberDTOs(projectID string) ([]ProjectMemberDTO, error) {
	details, err := h.store.ListProjectMembers(projectID)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectMemberDTO, 0, len(details))
	for _, d := range details {
		out = append(out, ProjectMemberDTO{
			UserID:        d.UserID,
			Name:          d.Name,
			Email:         d.Email,
			RoleInProject: d.Role,
		})
	}
	return out, nil
}

// ListMembers handles GET /api/projects/:id/members.
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	members, err := h.memberDTOs(project.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(members)
}

// AddMembers handles POST /api/projects/:id/members. Unknown users are
// skipped; users already on the project keep their existing role.
func (h *Handlers) AddMembers(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	var req AddMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Members == nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "members must be an array")
	}

	adds := make([]store.ProjectMember, 0, len(req.Members))
	for _, a := range req.Members {
		user, err := h.store.GetUser(a.UserID)
		if err != nil {
			return serviceError(c, err)
		}
		if user == nil {
			continue
		}
		adds = append(adds, store.ProjectMember{UserID: a.UserID, Role: a.Role})
	}
	if err := h.store.AddProjectMembers(project.ID, adds); err != nil {
		return serviceError(c, err)
	}

	members, err := h.memberDTOs(project.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(members)
}

// RemoveMember handles DELETE /api/projects/:id/members/:userId.
func (h *Handlers) RemoveMember(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	if _, err := h.store.RemoveProjectMember(project.ID, c.Params("userId")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}

// UpdateMemberRole handles PUT /api/projects/:id/members/:userId.
func (h *Handlers) UpdateMemberRole(c *fiber.Ctx) error {
	var req UpdateMemberRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Role == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Role is required")
	}

	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	found, err := h.store.UpdateProjectMemberRole(project.ID, c.Params("userId"), req.Role)
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Member not found on project")
	}
	return c.JSON(fiber.Map{"message": "Updated"})
}

// ProjectSummary handles GET /api/projects/:id/summary.
func (h *Handlers) ProjectSummary(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	summary, err := h.store.SummarizeProjectTasks(project.ID)
	if err != nil {
		return serviceError(c, err)
	}

	progress := "0%"
	if summary.TotalTasks > 0 {
		progress = fmt.Sprintf("%d%%", int(math.Round(float64(summary.Done)/float64(summary.TotalTasks)*100)))
	}
	return c.JSON(ProjectSummaryResponse{
		TotalTasks: summary.TotalTasks,
		Todo:       summary.Todo,
		InProgress: summary.InProgress,
		Done:       summary.Done,
		Overdue:    summary.Overdue,
		Progress:   progress,
	})
}

// AssignMembers handles POST /api/projects/:id/assign-members.
func (h *Handlers) AssignMembers(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	if project == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found")
	}

	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if req.MemberAssignments != nil {
		project.Members = membersFromAssignments(req.MemberAssignments)
	}
	if req.ManagerID != "" {
		mgr, err := h.store.GetUser(req.ManagerID)
		if err != nil {
			return serviceError(c, err)
		}
		if mgr == nil {
			return problemResponse(c, fiber.StatusNotFound,
				"not_found", "Not Found", "Manager not found")
		}
		project.ManagerID = req.ManagerID
	}

	if err := h.store.UpdateProject(project); err != nil {
		return serviceError(c, err)
	}

	updated, err := h.store.GetProject(project.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(toProjectDTO(updated))
}
