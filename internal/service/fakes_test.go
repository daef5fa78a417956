package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ideaflow/internal/domain"
	"github.com/spec-kit/ideaflow/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories. It
// mirrors the SQL semantics the real implementations rely on: the guarded
// accept update, the unique projects.case_id constraint and the atomic
// complete (project insert + case close under one lock).
type memStore struct {
	mu sync.Mutex

	users      map[int64]*domain.User
	nextUserID int64

	cases      map[int64]*domain.Case
	nextCaseID int64

	projects      map[int64]*domain.Project
	projectByCase map[int64]int64
	nextProjectID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[int64]*domain.User),
		cases:         make(map[int64]*domain.Case),
		projects:      make(map[int64]*domain.Project),
		projectByCase: make(map[int64]int64),
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

// --- repository.UserRepository ---

func (s *memStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return uniqueViolation()
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) UpdateProfile(ctx context.Context, id int64, update repository.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.FirstName = update.FirstName
	user.LastName = update.LastName
	user.Photo = update.Photo
	user.Description = update.Description
	user.UpdatedAt = time.Now()
	return nil
}

// caseRepo / projectRepo expose the store under the narrower interfaces so
// method sets do not collide.
type caseRepo struct{ *memStore }
type projectRepo struct{ *memStore }

func (s *memStore) asCaseRepo() repository.CaseRepository       { return caseRepo{s} }
func (s *memStore) asProjectRepo() repository.ProjectRepository { return projectRepo{s} }

// --- repository.CaseRepository ---

func (r caseRepo) Create(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCaseID++
	c.ID = r.nextCaseID
	c.CreatedAt = time.Now()
	clone := *c
	clone.Files = append([]string{}, c.Files...)
	r.cases[c.ID] = &clone
	return nil
}

func (r caseRepo) GetByID(ctx context.Context, id int64) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cloneCase(id)
}

func (r caseRepo) List(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Case
	for id, c := range r.cases {
		if filter.OwnerID != nil && c.UserID != *filter.OwnerID {
			continue
		}
		if filter.ExecutorID != nil && (c.ExecutorID == nil || *c.ExecutorID != *filter.ExecutorID) {
			continue
		}
		clone, _ := r.cloneCase(id)
		result = append(result, *clone)
	}
	return result, nil
}

func (r caseRepo) Accept(ctx context.Context, caseID, executorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[caseID]
	if !ok || c.Status != domain.CaseStatusOpen || c.ExecutorID != nil {
		return pgx.ErrNoRows
	}
	c.Status = domain.CaseStatusInProcess
	c.ExecutorID = &executorID
	return nil
}

func (r caseRepo) AppendFiles(ctx context.Context, caseID int64, paths []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[caseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c.Files = append(c.Files, paths...)
	return append([]string{}, c.Files...), nil
}

func (r caseRepo) cloneCase(id int64) (*domain.Case, error) {
	c, ok := r.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *c
	clone.Files = append([]string{}, c.Files...)
	if owner, ok := r.users[c.UserID]; ok {
		email := owner.Email
		clone.OwnerEmail = &email
	}
	return &clone, nil
}

// --- repository.ProjectRepository ---

func (r projectRepo) CompleteCase(ctx context.Context, caseID, executorID int64, overrides repository.ProjectOverrides) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[caseID]
	if !ok || c.ExecutorID == nil || *c.ExecutorID != executorID {
		return nil, pgx.ErrNoRows
	}
	if _, exists := r.projectByCase[caseID]; exists {
		return nil, uniqueViolation()
	}

	var executorEmail *string
	if executor, ok := r.users[executorID]; ok {
		email := executor.Email
		executorEmail = &email
	}

	project := &domain.Project{
		CaseID:        caseID,
		UserID:        executorID,
		Title:         c.Title,
		Theme:         c.Theme,
		Description:   c.Description,
		Cover:         c.Cover,
		Files:         append([]string{}, c.Files...),
		Status:        domain.ProjectStatusCompleted,
		ExecutorEmail: executorEmail,
	}
	if overrides.Title != nil && *overrides.Title != "" {
		project.Title = *overrides.Title
	}
	if overrides.Theme != nil {
		project.Theme = *overrides.Theme
	}
	if overrides.Description != nil {
		project.Description = *overrides.Description
	}
	if overrides.Cover != nil {
		project.Cover = overrides.Cover
	}
	if overrides.Files != nil {
		project.Files = overrides.Files
	}

	r.insertProject(project)
	c.Status = domain.CaseStatusClosed
	return project, nil
}

func (r projectRepo) CreateFromCase(ctx context.Context, project *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[project.CaseID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !c.Status.CanTransitionTo(domain.CaseStatusClosed) {
		return repository.ErrCaseClosed
	}
	if _, exists := r.projectByCase[project.CaseID]; exists {
		return uniqueViolation()
	}
	r.insertProject(project)
	c.Status = domain.CaseStatusClosed
	return nil
}

func (r projectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *project
	clone.Files = append([]string{}, project.Files...)
	if owner, ok := r.users[project.UserID]; ok {
		email := owner.Email
		clone.OwnerEmail = &email
	}
	return &clone, nil
}

func (r projectRepo) List(ctx context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Project
	for _, project := range r.projects {
		if filter.OwnerID != nil && project.UserID != *filter.OwnerID {
			continue
		}
		clone := *project
		clone.Files = append([]string{}, project.Files...)
		result = append(result, clone)
	}
	return result, nil
}

func (r projectRepo) insertProject(project *domain.Project) {
	r.nextProjectID++
	project.ID = r.nextProjectID
	project.CreatedAt = time.Now()
	clone := *project
	clone.Files = append([]string{}, project.Files...)
	r.projects[project.ID] = &clone
	r.projectByCase[project.CaseID] = project.ID
}

// fakeCache records cache traffic for assertions.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	return val, ok
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *fakeCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes = append(c.deletes, key)
}
