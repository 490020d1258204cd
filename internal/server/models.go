// Package server exposes the planwise REST API over Fiber.
package server

import (
	"time"

	"github.com/planwise/planwise/internal/store"
)

// ProblemDetail is an RFC 7807 error payload.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	// RawResponse carries the unusable model output for diagnosis.
	RawResponse string `json:"raw_response,omitempty"`
}

// --- Auth DTOs ---

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// --- User DTOs ---

type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// --- Project DTOs ---

type MemberAssignment struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

type ProjectRequest struct {
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	StartDate         *time.Time         `json:"startDate,omitempty"`
	EndDate           *time.Time         `json:"endDate,omitempty"`
	Status            string             `json:"status,omitempty"`
	ManagerID         string             `json:"managerId,omitempty"`
	MemberAssignments []MemberAssignment `json:"memberAssignments,omitempty"`
}

type ProjectDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	StartDate   *time.Time         `json:"startDate,omitempty"`
	EndDate     *time.Time         `json:"endDate,omitempty"`
	Status      string             `json:"status"`
	ManagerID   string             `json:"managerId,omitempty"`
	Members     []MemberAssignment `json:"members"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type AddMembersRequest struct {
	Members []MemberAssignment `json:"members"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// ProjectMemberDTO is a membership with the member's account details.
type ProjectMemberDTO struct {
	UserID        string `json:"userId"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	RoleInProject string `json:"roleInProject"`
}

type ProjectSummaryResponse struct {
	TotalTasks int    `json:"totalTasks"`
	Todo       int    `json:"todo"`
	InProgress int    `json:"inProgress"`
	Done       int    `json:"done"`
	Overdue    int    `json:"overdue"`
	Progress   string `json:"progress"`
}

// --- Task DTOs ---

type TaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

type TaskDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaskSummaryResponse struct {
	ByStatus map[string]int `json:"byStatus"`
	Overdue  int            `json:"overdue"`
}

// --- AI DTOs ---

type GenerateStoriesRequest struct {
	ProjectDescription string `json:"projectDescription"`
	ProjectID          string `json:"projectId,omitempty"`
}

type GenerateStoriesResponse struct {
	Success      bool       `json:"success"`
	UserStories  []string   `json:"userStories"`
	SavedStories []StoryDTO `json:"savedStories"`
	Message      string     `json:"message"`
}

type StoryDTO struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Story     string    `json:"story"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action,omitempty"`
	Benefit   string    `json:"benefit,omitempty"`
	Status    string    `json:"status"`
	TaskID    string    `json:"taskId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ConvertStoryRequest struct {
	AssignedTo string     `json:"assignedTo,omitempty"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

type ConvertStoryResponse struct {
	Success bool     `json:"success"`
	Task    TaskDTO  `json:"task"`
	Story   StoryDTO `json:"userStory"`
}

type UpdateStoryStatusRequest struct {
	Status string `json:"status"`
}

// --- DTO mapping ---

func msToTimePtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}

func timePtrToMs(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func toUserDTO(u *store.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func toProjectDTO(p *store.Project) ProjectDTO {
	members := make([]MemberAssignment, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, MemberAssignment{UserID: m.UserID, Role: m.Role})
	}
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   msToTimePtr(p.StartDate),
		EndDate:     msToTimePtr(p.EndDate),
		Status:      p.Status,
		ManagerID:   p.ManagerID,
		Members:     members,
		CreatedAt:   time.UnixMilli(p.CreatedAt),
		UpdatedAt:   time.UnixMilli(p.UpdatedAt),
	}
}

func toTaskDTO(t *store.Task) TaskDTO {
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Deadline:    msToTimePtr(t.Deadline),
		ProjectID:   t.ProjectID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   time.UnixMilli(t.CreatedAt),
		UpdatedAt:   time.UnixMilli(t.UpdatedAt),
	}
}

func toStoryDTO(st *store.UserStory) StoryDTO {
	return StoryDTO{
		ID:        st.ID,
		ProjectID: st.ProjectID,
		Story:     st.Story,
		Role:      st.Role,
		Action:    st.Action,
		Benefit:   st.Benefit,
		Status:    st.Status,
		TaskID:    st.TaskID,
		CreatedAt: time.UnixMilli(st.CreatedAt),
	}
}
