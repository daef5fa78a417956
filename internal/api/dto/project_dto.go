package dto

import (
	"time"

	"github.com/spec-kit/ideaflow/internal/domain"
)

// ProjectResponse is the wire shape for a project. ExecutorEmail is the
// snapshot taken at completion, not resolved from users.
type ProjectResponse struct {
	ID            int64                `json:"id"`
	CaseID        int64                `json:"caseId"`
	UserID        int64                `json:"userId"`
	Title         string               `json:"title"`
	Theme         string               `json:"theme"`
	Description   string               `json:"description"`
	Cover         *string              `json:"cover"`
	Files         []string             `json:"files"`
	Status        domain.ProjectStatus `json:"status"`
	ExecutorEmail *string              `json:"executorEmail"`
	CreatedAt     time.Time            `json:"createdAt"`
	UserEmail     *string              `json:"userEmail"`
}

// ProjectCreatedResponse response for POST /projects.
type ProjectCreatedResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// NewProjectResponse maps a domain project onto the wire shape.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	files := p.Files
	if files == nil {
		files = []string{}
	}
	return ProjectResponse{
		ID:            p.ID,
		CaseID:        p.CaseID,
		UserID:        p.UserID,
		Title:         p.Title,
		Theme:         p.Theme,
		Description:   p.Description,
		Cover:         p.Cover,
		Files:         files,
		Status:        p.Status,
		ExecutorEmail: p.ExecutorEmail,
		CreatedAt:     p.CreatedAt,
		UserEmail:     p.OwnerEmail,
	}
}
