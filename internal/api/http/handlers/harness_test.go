package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/ideaflow/internal/api/http"
	"github.com/spec-kit/ideaflow/internal/api/http/handlers"
	"github.com/spec-kit/ideaflow/internal/config"
	"github.com/spec-kit/ideaflow/internal/domain"
	"github.com/spec-kit/ideaflow/internal/events"
	"github.com/spec-kit/ideaflow/internal/observability"
	"github.com/spec-kit/ideaflow/internal/repository"
	"github.com/spec-kit/ideaflow/internal/service"
	"github.com/spec-kit/ideaflow/internal/storage"
)

// memStore backs the handlers with in-memory repositories that keep the
// SQL semantics of the real ones: the guarded accept update, the unique
// project-per-case constraint and the atomic complete.
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

type caseRepo struct{ *memStore }
type projectRepo struct{ *memStore }

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

// newTestApp assembles the full HTTP surface over the in-memory store,
// with the real middlewares, services and a local blob store.
func newTestApp(t *testing.T) (*fiber.App, *memStore) {
	t.Helper()

	store := newMemStore()
	blobs, err := storage.NewLocalStore(config.UploadsConfig{Dir: t.TempDir(), PublicPrefix: "/uploads"})
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    caseRepo{store},
		ProjectRepo: projectRepo{store},
		Dispatcher:  dispatcher,
	})
	projectService := service.NewProjectService(service.ProjectDependencies{
		ProjectRepo: projectRepo{store},
		Dispatcher:  dispatcher,
	})
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, store)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	apihttp.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:   handlers.NewHealthHandler("ideaflow", "test", nil, nil),
		Users:    handlers.NewUsersHandler(authService),
		Cases:    handlers.NewCasesHandler(caseService, blobs, 15),
		Projects: handlers.NewProjectsHandler(projectService, blobs, 15),
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) *nethttp.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// doMultipart sends a multipart form. Values carry text fields; files maps
// a field name to uploaded file names.
func doMultipart(t *testing.T, app *fiber.App, method, target string, values map[string]string, files map[string][]string) *nethttp.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, val := range values {
		require.NoError(t, writer.WriteField(key, val))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// errorEnvelope mirrors the error response shape.
type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func requireErrorCode(t *testing.T, resp *nethttp.Response, status int, code string) errorEnvelope {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	var envelope errorEnvelope
	decodeBody(t, resp, &envelope)
	require.Equal(t, code, envelope.Error.Code)
	require.NotEmpty(t, envelope.Error.Message)
	return envelope
}

func registerUser(t *testing.T, app *fiber.App, email string) int64 {
	t.Helper()
	resp := doJSON(t, app, nethttp.MethodPost, "/register", map[string]string{
		"email":    email,
		"password": "s3cret-pw",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	var auth struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	decodeBody(t, resp, &auth)
	require.NotZero(t, auth.ID)
	require.NotEmpty(t, auth.Token)
	return auth.ID
}

func createCase(t *testing.T, app *fiber.App, ownerID int64, title string, fileNames ...string) int64 {
	t.Helper()
	values := map[string]string{
		"userId": formatID(ownerID),
		"title":  title,
		"theme":  "design",
	}
	files := map[string][]string{}
	if len(fileNames) > 0 {
		files["files"] = fileNames
	}
	resp := doMultipart(t, app, nethttp.MethodPost, "/cases", values, files)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	var created struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)
	require.Equal(t, "case created", created.Message)
	return created.ID
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
