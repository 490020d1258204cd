// Package stories implements the AI-assisted user-story workflow: prompt the
// model service for candidate stories, parse them into structured records,
// and manage the persisted story lifecycle (pending → converted_to_task or
// rejected).
package stories

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/apperrors"
	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/store"
)

// Converted task titles fall back to a truncated story sentence when the
// action field could not be extracted.
const maxTitleLen = 100

// UnusableOutputError reports that the model responded but produced nothing
// the parser could use. The raw text is kept for diagnosis.
type UnusableOutputError struct {
	Raw string
}

func (e *UnusableOutputError) Error() string {
	return "model output contained no usable stories"
}

// Result is the outcome of one generation request.
type Result struct {
	Stories []string
	// Saved is nil when the caller did not supply a project to attach the
	// stories to.
	Saved []store.UserStory
}

// Service owns the user-story workflow on top of the persistent store.
type Service struct {
	generator *Generator
	store     *store.Store
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// credErr is the startup-time credential validation result, checked
	// before any generation attempt so operators get a configuration error
	// instead of an upstream 401.
	credErr error
}

// NewService constructs the story service. credErr carries the eager
// credential check result (nil when the key is valid); metrics may be nil.
func NewService(gen *Generator, st *store.Store, credErr error, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		generator: gen,
		store:     st,
		metrics:   m,
		credErr:   credErr,
		logger:    logger.With().Str("component", "stories").Logger(),
	}
}

// GenerateStories runs the full generation flow: validate, prompt, parse,
// and (when projectID is given) persist the result as pending stories.
func (s *Service) GenerateStories(ctx context.Context, description, projectID string) (*Result, error) {
	if s.credErr != nil {
		return nil, s.credErr
	}

	// The project check happens before the upstream call: a bad reference
	// should not cost a completion.
	if projectID != "" {
		project, err := s.store.GetProject(projectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("%w: project %s", apperrors.ErrNotFound, projectID)
		}
	}

	raw, err := s.generator.Generate(ctx, description)
	if err != nil {
		return nil, err
	}

	sentences := Parse(raw)
	if len(sentences) == 0 {
		s.logger.Warn().Int("raw_len", len(raw)).Msg("generation produced no parseable stories")
		return nil, &UnusableOutputError{Raw: raw}
	}
	if s.metrics != nil {
		s.metrics.RecordStories(len(sentences))
	}

	result := &Result{Stories: sentences}
	if projectID != "" {
		saved, err := s.RecordGenerated(ctx, projectID, sentences)
		if err != nil {
			return nil, err
		}
		result.Saved = saved
	}
	return result, nil
}

// RecordGenerated persists one pending UserStory per sentence, in input
// order. The project is checked once before the batch. Duplicate sentences
// for a project are allowed.
func (s *Service) RecordGenerated(ctx context.Context, projectID string, sentences []string) ([]store.UserStory, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: project %s", apperrors.ErrNotFound, projectID)
	}

	saved := make([]store.UserStory, 0, len(sentences))
	for _, sentence := range sentences {
		st := store.UserStory{
			ProjectID: projectID,
			Story:     sentence,
			Status:    store.StoryPending,
		}
		if fields, ok := ExtractFields(sentence); ok {
			st.Role = fields.Role
			st.Action = fields.Action
			st.Benefit = fields.Benefit
		}
		if err := s.store.CreateUserStory(&st); err != nil {
			return nil, err
		}
		saved = append(saved, st)
	}

	s.logger.Info().Str("project_id", projectID).Int("count", len(saved)).Msg("stories recorded")
	return saved, nil
}

// ListStories returns all stories for a project, newest first.
func (s *Service) ListStories(ctx context.Context, projectID string) ([]store.UserStory, error) {
	return s.store.ListUserStories(projectID)
}

// UpdateStatus overwrites a story's status. Any recognized status is
// reachable from any other; the whitelist is the only constraint.
func (s *Service) UpdateStatus(ctx context.Context, storyID, status string) (*store.UserStory, error) {
	if !store.ValidStoryStatus(status) {
		return nil, fmt.Errorf("%w: unknown story status %q", apperrors.ErrInvalidInput, status)
	}

	found, err := s.store.UpdateUserStoryStatus(storyID, status)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: user story %s", apperrors.ErrNotFound, storyID)
	}
	return s.store.GetUserStory(storyID)
}

// ConvertToTask promotes a pending story into a task. The task title is the
// extracted action when present, otherwise the truncated sentence; the
// description is always the full sentence. Task creation and the story
// update commit together.
func (s *Service) ConvertToTask(ctx context.Context, storyID, assigneeID string, deadline *time.Time) (*store.Task, *store.UserStory, error) {
	story, err := s.store.GetUserStory(storyID)
	if err != nil {
		return nil, nil, err
	}
	if story == nil {
		return nil, nil, fmt.Errorf("%w: user story %s", apperrors.ErrNotFound, storyID)
	}

	title := story.Action
	if title == "" {
		title = story.Story
		// Truncate on runes so a multibyte character cannot be split.
		if r := []rune(title); len(r) > maxTitleLen {
			title = string(r[:maxTitleLen])
		}
	}

	task := &store.Task{
		Title:       title,
		Description: story.Story,
		ProjectID:   story.ProjectID,
		AssigneeID:  assigneeID,
		Status:      store.TaskTodo,
	}
	if deadline != nil {
		task.Deadline = deadline.UnixMilli()
	}

	if err := s.store.ConvertUserStory(storyID, task); err != nil {
		return nil, nil, err
	}

	story, err = s.store.GetUserStory(storyID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("story_id", storyID).Str("task_id", task.ID).Msg("story converted to task")
	return task, story, nil
}

// Delete removes a story permanently. A task previously created from the
// story is left alone.
func (s *Service) Delete(ctx context.Context, storyID string) error {
	found, err := s.store.DeleteUserStory(storyID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: user story %s", apperrors.ErrNotFound, storyID)
	}
	return nil
}
