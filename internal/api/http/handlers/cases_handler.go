package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ideaflow/internal/api/dto"
	"github.com/spec-kit/ideaflow/internal/service"
	"github.com/spec-kit/ideaflow/internal/storage"
	apperrors "github.com/spec-kit/ideaflow/pkg/util"
)

// CasesHandler manages the case lifecycle endpoints.
type CasesHandler struct {
	service  *service.CaseService
	store    storage.BlobStore
	maxFiles int
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService, store storage.BlobStore, maxFiles int) *CasesHandler {
	if maxFiles <= 0 {
		maxFiles = 15
	}
	return &CasesHandler{service: caseService, store: store, maxFiles: maxFiles}
}

// CreateCase POST /cases (multipart: cover, files[]).
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	ownerID, err := parseFormInt64(c, "userId")
	if err != nil {
		return apperrors.NewValidationError("userId and title are required", nil)
	}
	title := c.FormValue("title")
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("userId and title are required", nil)
	}

	cover, files, err := h.collectUploads(c, "cover", "files")
	if err != nil {
		return err
	}

	created, err := h.service.Create(c.Context(), service.CaseCreateInput{
		OwnerID:     ownerID,
		Title:       title,
		Theme:       c.FormValue("theme"),
		Description: c.FormValue("description"),
		Cover:       cover,
		Files:       files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.CaseCreatedResponse{
		ID:      created.ID,
		Message: "case created",
	})
}

// ListCases GET /cases?userId=&executorId=.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	ownerID, err := parseOptionalQueryInt64(c, "userId")
	if err != nil {
		return err
	}
	executorID, err := parseOptionalQueryInt64(c, "executorId")
	if err != nil {
		return err
	}

	cases, err := h.service.List(c.Context(), ownerID, executorID)
	if err != nil {
		return err
	}
	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, dto.NewCaseResponse(&cases[i]))
	}
	return c.JSON(items)
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	caseID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	found, err := h.service.Get(c.Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCaseResponse(found))
}

// AcceptCase PUT /cases/:id/accept.
func (h *CasesHandler) AcceptCase(c *fiber.Ctx) error {
	caseID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	var req dto.AcceptCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ExecutorID == nil {
		return apperrors.NewValidationError("executorId is required and must be a number", nil)
	}

	if err := h.service.Accept(c.Context(), caseID, *req.ExecutorID); err != nil {
		return err
	}
	return c.JSON(dto.CaseAcceptedResponse{Message: "case accepted", CaseID: caseID})
}

// UploadFiles POST /cases/:id/upload-files (multipart: extraFiles[]).
func (h *CasesHandler) UploadFiles(c *fiber.Ctx) error {
	caseID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File["extraFiles"]) == 0 {
		return apperrors.NewValidationError("no files selected", nil)
	}
	headers := form.File["extraFiles"]
	if len(headers) > h.maxFiles {
		headers = headers[:h.maxFiles]
	}

	paths, err := h.store.SaveAll(headers)
	if err != nil {
		return err
	}

	files, err := h.service.AppendFiles(c.Context(), caseID, paths)
	if err != nil {
		return err
	}
	return c.JSON(dto.FilesAppendedResponse{Message: "files added", Files: files})
}

// CompleteCase PUT /cases/:id/complete.
func (h *CasesHandler) CompleteCase(c *fiber.Ctx) error {
	caseID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	var req dto.CompleteCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == nil {
		return apperrors.NewValidationError("userId is required", nil)
	}

	project, err := h.service.Complete(c.Context(), caseID, *req.UserID, service.CompleteOverrides{
		Title:       req.Title,
		Theme:       req.Theme,
		Description: req.Description,
		Cover:       req.Cover,
		Files:       req.Files,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.CaseCompletedResponse{Message: "project created", ProjectID: project.ID})
}

// collectUploads saves the single cover and the file batch from the
// multipart form, if present. A non-multipart request is not an error;
// it just carries no attachments.
func (h *CasesHandler) collectUploads(c *fiber.Ctx, coverField, filesField string) (*string, []string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, []string{}, nil
	}

	var cover *string
	if headers := form.File[coverField]; len(headers) > 0 {
		path, err := h.store.Save(headers[0])
		if err != nil {
			return nil, nil, err
		}
		cover = &path
	}

	headers := form.File[filesField]
	if len(headers) > h.maxFiles {
		headers = headers[:h.maxFiles]
	}
	files, err := h.store.SaveAll(headers)
	if err != nil {
		return nil, nil, err
	}
	return cover, files, nil
}

func parseParamInt64(c *fiber.Ctx, name string) (int64, error) {
	parsed, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, nil)
	}
	return parsed, nil
}

func parseFormInt64(c *fiber.Ctx, name string) (int64, error) {
	parsed, err := strconv.ParseInt(c.FormValue(name), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, apperrors.NewValidationError(name+" must be a number", nil)
	}
	return parsed, nil
}

func parseOptionalQueryInt64(c *fiber.Ctx, name string) (*int64, error) {
	val := c.Query(name)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(name+" must be a number", nil)
	}
	return &parsed, nil
}
