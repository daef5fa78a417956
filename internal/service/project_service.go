package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ideaflow/internal/domain"
	"github.com/spec-kit/ideaflow/internal/events"
	"github.com/spec-kit/ideaflow/internal/persistence"
	"github.com/spec-kit/ideaflow/internal/repository"
	apperrors "github.com/spec-kit/ideaflow/pkg/util"
)

// ProjectService covers the direct project path and project reads.
type ProjectService struct {
	projects   repository.ProjectRepository
	dispatcher events.Dispatcher
	cache      persistence.Cache
}

// ProjectDependencies bundles collaborators for the project service.
type ProjectDependencies struct {
	ProjectRepo repository.ProjectRepository
	Dispatcher  events.Dispatcher
	Cache       persistence.Cache
}

// ProjectCreateInput describes the direct-creation payload.
type ProjectCreateInput struct {
	CaseID      int64
	UserID      int64
	Title       string
	Theme       string
	Description string
	Cover       *string
	Files       []string
}

// NewProjectService constructs the service.
func NewProjectService(deps ProjectDependencies) *ProjectService {
	return &ProjectService{
		projects:   deps.ProjectRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
	}
}

// CreateDirect materializes a project straight from a case, skipping the
// acceptance step, and closes the case in the same transaction. This is the
// documented shortcut: the case never passes through in_process.
func (s *ProjectService) CreateDirect(ctx context.Context, input ProjectCreateInput) (*domain.Project, error) {
	if input.CaseID <= 0 || input.UserID <= 0 {
		return nil, apperrors.NewValidationError("caseId and userId are required", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	files := input.Files
	if files == nil {
		files = []string{}
	}
	project := &domain.Project{
		CaseID:      input.CaseID,
		UserID:      input.UserID,
		Title:       strings.TrimSpace(input.Title),
		Theme:       strings.TrimSpace(input.Theme),
		Description: strings.TrimSpace(input.Description),
		Cover:       input.Cover,
		Files:       files,
		Status:      domain.ProjectStatusCompleted,
	}

	if err := s.projects.CreateFromCase(ctx, project); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"caseId": input.CaseID})
		}
		if errors.Is(err, repository.ErrCaseClosed) {
			return nil, apperrors.NewConflict("case already closed", map[string]any{"caseId": input.CaseID})
		}
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("case already has a project", map[string]any{"caseId": input.CaseID})
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Delete(ctx, caseCacheKey(input.CaseID))
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventProjectCreated,
		CaseID:  input.CaseID,
		ActorID: &input.UserID,
		Payload: events.ProjectCreatedPayload{
			ProjectID: project.ID,
			OwnerID:   project.UserID,
		},
	})
	return project, nil
}

// Get fetches a project detail, read-through cached.
func (s *ProjectService) Get(ctx context.Context, projectID int64) (*domain.Project, error) {
	key := projectCacheKey(projectID)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached domain.Project
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"projectId": projectID})
		}
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(project); err == nil {
			s.cache.Set(ctx, key, raw, detailCacheTTL)
		}
	}
	return project, nil
}

// List returns projects, optionally filtered by the materializing user.
func (s *ProjectService) List(ctx context.Context, ownerID *int64) ([]domain.Project, error) {
	items, err := s.projects.List(ctx, repository.ProjectFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Project{}
	}
	return items, nil
}

func projectCacheKey(id int64) string {
	return fmt.Sprintf("project:%d", id)
}

func (s *ProjectService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}
