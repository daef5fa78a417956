package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ideaflow/internal/domain"
	"github.com/spec-kit/ideaflow/internal/events"
	"github.com/spec-kit/ideaflow/internal/persistence"
	"github.com/spec-kit/ideaflow/internal/repository"
	apperrors "github.com/spec-kit/ideaflow/pkg/util"
)

const detailCacheTTL = 5 * time.Minute

// CaseService owns the case lifecycle: creation, executor acceptance,
// attachment appends and completion into a project.
type CaseService struct {
	cases      repository.CaseRepository
	projects   repository.ProjectRepository
	dispatcher events.Dispatcher
	cache      persistence.Cache
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo    repository.CaseRepository
	ProjectRepo repository.ProjectRepository
	Dispatcher  events.Dispatcher
	Cache       persistence.Cache
}

// CaseCreateInput describes case creation payload.
type CaseCreateInput struct {
	OwnerID     int64
	Title       string
	Theme       string
	Description string
	Cover       *string
	Files       []string
}

// CompleteOverrides carries optional replacement fields for the materialized project.
type CompleteOverrides struct {
	Title       *string
	Theme       *string
	Description *string
	Cover       *string
	Files       []string
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	return &CaseService{
		cases:      deps.CaseRepo,
		projects:   deps.ProjectRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
	}
}

// Create persists a new open case for its owner.
func (s *CaseService) Create(ctx context.Context, input CaseCreateInput) (*domain.Case, error) {
	if input.OwnerID <= 0 {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	files := input.Files
	if files == nil {
		files = []string{}
	}
	c := &domain.Case{
		UserID:      input.OwnerID,
		Title:       strings.TrimSpace(input.Title),
		Theme:       strings.TrimSpace(input.Theme),
		Description: strings.TrimSpace(input.Description),
		Cover:       input.Cover,
		Files:       files,
		Status:      domain.CaseStatusOpen,
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventCaseCreated,
		CaseID:  c.ID,
		ActorID: &c.UserID,
		Payload: events.CaseCreatedPayload{
			OwnerID: c.UserID,
			Title:   c.Title,
			Theme:   c.Theme,
		},
	})
	return c, nil
}

// Accept binds an executor to an open case, moving it to in_process.
// Accepting a case that already has an executor is a conflict, never a
// silent overwrite of the previous claim.
func (s *CaseService) Accept(ctx context.Context, caseID, executorID int64) error {
	if executorID <= 0 {
		return apperrors.NewValidationError("executorId is required and must be a number", nil)
	}
	if caseID <= 0 {
		return apperrors.NewValidationError("invalid case id", nil)
	}

	err := s.cases.Accept(ctx, caseID, executorID)
	if err == nil {
		s.invalidateCase(ctx, caseID)
		s.publishEvent(ctx, events.Event{
			Type:    events.EventCaseAccepted,
			CaseID:  caseID,
			ActorID: &executorID,
			Payload: events.CaseAcceptedPayload{ExecutorID: executorID},
		})
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// the guarded update matched nothing: either the case is gone or it
	// already left the open state
	existing, getErr := s.cases.GetByID(ctx, caseID)
	if getErr != nil {
		if errors.Is(getErr, pgx.ErrNoRows) {
			return apperrors.NewNotFound("case", map[string]any{"caseId": caseID})
		}
		return getErr
	}
	return apperrors.NewConflict("case already accepted", map[string]any{
		"caseId": caseID,
		"status": existing.Status,
	})
}

// AppendFiles adds attachments to a case and returns the full ordered list.
func (s *CaseService) AppendFiles(ctx context.Context, caseID int64, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, apperrors.NewValidationError("no files selected", nil)
	}

	files, err := s.cases.AppendFiles(ctx, caseID, paths)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"caseId": caseID})
		}
		return nil, err
	}
	s.invalidateCase(ctx, caseID)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseFilesAppended,
		CaseID: caseID,
		Payload: events.CaseFilesAppendedPayload{
			Added: len(paths),
			Total: len(files),
		},
	})
	return files, nil
}

// Complete materializes a project from the case claimed by executorID and
// closes the case, atomically. The pair match doubles as the ownership
// check: a foreign or absent case both surface as not found.
func (s *CaseService) Complete(ctx context.Context, caseID, executorID int64, overrides CompleteOverrides) (*domain.Project, error) {
	if executorID <= 0 {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}

	project, err := s.projects.CompleteCase(ctx, caseID, executorID, repository.ProjectOverrides{
		Title:       overrides.Title,
		Theme:       overrides.Theme,
		Description: overrides.Description,
		Cover:       overrides.Cover,
		Files:       overrides.Files,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{
				"caseId":     caseID,
				"executorId": executorID,
			})
		}
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("case already completed", map[string]any{"caseId": caseID})
		}
		return nil, err
	}

	s.invalidateCase(ctx, caseID)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventCaseCompleted,
		CaseID:  caseID,
		ActorID: &executorID,
		Payload: events.CaseCompletedPayload{
			ProjectID:     project.ID,
			ExecutorEmail: project.ExecutorEmail,
		},
	})
	return project, nil
}

// Get fetches a case detail, read-through cached.
func (s *CaseService) Get(ctx context.Context, caseID int64) (*domain.Case, error) {
	key := caseCacheKey(caseID)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached domain.Case
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"caseId": caseID})
		}
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(c); err == nil {
			s.cache.Set(ctx, key, raw, detailCacheTTL)
		}
	}
	return c, nil
}

// List returns cases matching the filter, enriched with owner emails.
func (s *CaseService) List(ctx context.Context, ownerID, executorID *int64) ([]domain.Case, error) {
	items, err := s.cases.List(ctx, repository.CaseFilter{
		OwnerID:    ownerID,
		ExecutorID: executorID,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Case{}
	}
	return items, nil
}

func (s *CaseService) invalidateCase(ctx context.Context, caseID int64) {
	if s.cache != nil {
		s.cache.Delete(ctx, caseCacheKey(caseID))
	}
}

func caseCacheKey(id int64) string {
	return fmt.Sprintf("case:%d", id)
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func publishWithDefaults(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
