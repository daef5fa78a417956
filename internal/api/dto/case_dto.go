package dto

import (
	"time"

	"github.com/spec-kit/ideaflow/internal/domain"
)

// CaseResponse is the camelCase wire shape for a case. Files is always an
// array, never null.
type CaseResponse struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"userId"`
	Title       string            `json:"title"`
	Theme       string            `json:"theme"`
	Description string            `json:"description"`
	Cover       *string           `json:"cover"`
	Files       []string          `json:"files"`
	Status      domain.CaseStatus `json:"status"`
	ExecutorID  *int64            `json:"executorId"`
	CreatedAt   time.Time         `json:"createdAt"`
	UserEmail   *string           `json:"userEmail"`
}

// AcceptCaseRequest payload for PUT /cases/:id/accept.
type AcceptCaseRequest struct {
	ExecutorID *int64 `json:"executorId"`
}

// CompleteCaseRequest payload for PUT /cases/:id/complete. Every field but
// userId is an optional override of the case snapshot.
type CompleteCaseRequest struct {
	UserID      *int64   `json:"userId"`
	Title       *string  `json:"title"`
	Theme       *string  `json:"theme"`
	Description *string  `json:"description"`
	Cover       *string  `json:"cover"`
	Files       []string `json:"files"`
}

// CaseCreatedResponse response for POST /cases.
type CaseCreatedResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// CaseAcceptedResponse response for PUT /cases/:id/accept.
type CaseAcceptedResponse struct {
	Message string `json:"message"`
	CaseID  int64  `json:"caseId"`
}

// FilesAppendedResponse response for POST /cases/:id/upload-files.
type FilesAppendedResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// CaseCompletedResponse response for PUT /cases/:id/complete.
type CaseCompletedResponse struct {
	Message   string `json:"message"`
	ProjectID int64  `json:"projectId"`
}

// NewCaseResponse maps a domain case onto the wire shape.
func NewCaseResponse(c *domain.Case) CaseResponse {
	files := c.Files
	if files == nil {
		files = []string{}
	}
	return CaseResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Title:       c.Title,
		Theme:       c.Theme,
		Description: c.Description,
		Cover:       c.Cover,
		Files:       files,
		Status:      c.Status,
		ExecutorID:  c.ExecutorID,
		CreatedAt:   c.CreatedAt,
		UserEmail:   c.OwnerEmail,
	}
}
