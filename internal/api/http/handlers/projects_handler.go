package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ideaflow/internal/api/dto"
	"github.com/spec-kit/ideaflow/internal/service"
	"github.com/spec-kit/ideaflow/internal/storage"
	apperrors "github.com/spec-kit/ideaflow/pkg/util"
)

// ProjectsHandler manages project endpoints.
type ProjectsHandler struct {
	service  *service.ProjectService
	store    storage.BlobStore
	maxFiles int
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projectService *service.ProjectService, store storage.BlobStore, maxFiles int) *ProjectsHandler {
	if maxFiles <= 0 {
		maxFiles = 15
	}
	return &ProjectsHandler{service: projectService, store: store, maxFiles: maxFiles}
}

// CreateProject POST /projects (multipart: cover, files[]). The direct
// shortcut: closes the source case without an acceptance step.
func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	caseID, err := parseFormInt64(c, "caseId")
	if err != nil {
		return apperrors.NewValidationError("caseId, userId and title are required", nil)
	}
	userID, err := parseFormInt64(c, "userId")
	if err != nil {
		return apperrors.NewValidationError("caseId, userId and title are required", nil)
	}
	title := c.FormValue("title")
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("caseId, userId and title are required", nil)
	}

	cover, files, err := h.collectUploads(c)
	if err != nil {
		return err
	}

	project, err := h.service.CreateDirect(c.Context(), service.ProjectCreateInput{
		CaseID:      caseID,
		UserID:      userID,
		Title:       title,
		Theme:       c.FormValue("theme"),
		Description: c.FormValue("description"),
		Cover:       cover,
		Files:       files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.ProjectCreatedResponse{
		ID:      project.ID,
		Message: "project created",
	})
}

// ListProjects GET /projects?userId=.
func (h *ProjectsHandler) ListProjects(c *fiber.Ctx) error {
	ownerID, err := parseOptionalQueryInt64(c, "userId")
	if err != nil {
		return err
	}

	projects, err := h.service.List(c.Context(), ownerID)
	if err != nil {
		return err
	}
	items := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, dto.NewProjectResponse(&projects[i]))
	}
	return c.JSON(items)
}

// GetProject GET /projects/:id.
func (h *ProjectsHandler) GetProject(c *fiber.Ctx) error {
	projectID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	project, err := h.service.Get(c.Context(), projectID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProjectResponse(project))
}

func (h *ProjectsHandler) collectUploads(c *fiber.Ctx) (*string, []string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, []string{}, nil
	}

	var cover *string
	if headers := form.File["cover"]; len(headers) > 0 {
		path, err := h.store.Save(headers[0])
		if err != nil {
			return nil, nil, err
		}
		cover = &path
	}

	headers := form.File["files"]
	if len(headers) > h.maxFiles {
		headers = headers[:h.maxFiles]
	}
	files, err := h.store.SaveAll(headers)
	if err != nil {
		return nil, nil, err
	}
	return cover, files, nil
}
