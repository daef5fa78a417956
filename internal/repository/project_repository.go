package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ideaflow/internal/domain"
)

// ErrCaseClosed reports a lifecycle write against an already-closed case.
var ErrCaseClosed = errors.New("case already closed")

// ProjectFilter captures listing parameters.
type ProjectFilter struct {
	OwnerID *int64
}

// ProjectOverrides lets completion replace snapshot fields copied from the case.
// Nil fields fall back to the case values; a nil Files keeps the case attachments.
type ProjectOverrides struct {
	Title       *string
	Theme       *string
	Description *string
	Cover       *string
	Files       []string
}

// ProjectRepository encapsulates project persistence, including the
// transactional case-to-project completion.
type ProjectRepository interface {
	// CompleteCase atomically materializes a project from the case bound to
	// executorID and closes the case. Returns pgx.ErrNoRows when no case
	// matches the (caseID, executorID) pair; a duplicate project surfaces as
	// a unique violation on projects.case_id.
	CompleteCase(ctx context.Context, caseID, executorID int64, overrides ProjectOverrides) (*domain.Project, error)
	// CreateFromCase atomically inserts a pre-built project and closes the
	// source case, skipping the in_process state. Returns pgx.ErrNoRows when
	// the case is missing and ErrCaseClosed when it is already closed.
	CreateFromCase(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) CompleteCase(ctx context.Context, caseID, executorID int64, overrides ProjectOverrides) (*domain.Project, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var source domain.Case
	if err := tx.QueryRow(ctx,
		`SELECT id, user_id, title, theme, description, cover, status
         FROM cases WHERE id=$1 AND executor_id=$2 FOR UPDATE`,
		caseID, executorID,
	).Scan(
		&source.ID,
		&source.UserID,
		&source.Title,
		&source.Theme,
		&source.Description,
		&source.Cover,
		&source.Status,
	); err != nil {
		return nil, err
	}

	files, err := loadCaseFilesTx(ctx, tx, caseID)
	if err != nil {
		return nil, err
	}

	var executorEmail *string
	if err := tx.QueryRow(ctx,
		`SELECT email FROM users WHERE id=$1`, executorID).Scan(&executorEmail); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	project := &domain.Project{
		CaseID:        caseID,
		UserID:        executorID,
		Title:         source.Title,
		Theme:         source.Theme,
		Description:   source.Description,
		Cover:         source.Cover,
		Files:         files,
		Status:        domain.ProjectStatusCompleted,
		ExecutorEmail: executorEmail,
	}
	applyOverrides(project, overrides)

	if err := insertProjectTx(ctx, tx, project); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE cases SET status=$1 WHERE id=$2`,
		domain.CaseStatusClosed, caseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepository) CreateFromCase(ctx context.Context, project *domain.Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status domain.CaseStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM cases WHERE id=$1 FOR UPDATE`, project.CaseID).Scan(&status); err != nil {
		return err
	}
	if !status.CanTransitionTo(domain.CaseStatusClosed) {
		return ErrCaseClosed
	}

	if err := insertProjectTx(ctx, tx, project); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE cases SET status=$1 WHERE id=$2`,
		domain.CaseStatusClosed, project.CaseID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	const query = `
        SELECT p.id, p.case_id, p.user_id, p.title, p.theme, p.description, p.cover,
               p.files, p.status, p.executor_email, p.created_at, u.email
        FROM projects p
        LEFT JOIN users u ON p.user_id = u.id
        WHERE p.id=$1`

	var project domain.Project
	var rawFiles *string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.CaseID,
		&project.UserID,
		&project.Title,
		&project.Theme,
		&project.Description,
		&project.Cover,
		&rawFiles,
		&project.Status,
		&project.ExecutorEmail,
		&project.CreatedAt,
		&project.OwnerEmail,
	); err != nil {
		return nil, err
	}
	project.Files = decodeFiles(rawFiles)
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	base := `SELECT p.id, p.case_id, p.user_id, p.title, p.theme, p.description, p.cover,
                    p.files, p.status, p.executor_email, p.created_at, u.email
             FROM projects p
             LEFT JOIN users u ON p.user_id = u.id`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("p.user_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY p.created_at DESC, p.id DESC`,
		base, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		var project domain.Project
		var rawFiles *string
		if err := rows.Scan(
			&project.ID,
			&project.CaseID,
			&project.UserID,
			&project.Title,
			&project.Theme,
			&project.Description,
			&project.Cover,
			&rawFiles,
			&project.Status,
			&project.ExecutorEmail,
			&project.CreatedAt,
			&project.OwnerEmail,
		); err != nil {
			return nil, err
		}
		project.Files = decodeFiles(rawFiles)
		result = append(result, project)
	}
	return result, rows.Err()
}

func insertProjectTx(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	const query = `
        INSERT INTO projects (case_id, user_id, title, theme, description, cover, files, status, executor_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		project.CaseID,
		project.UserID,
		project.Title,
		project.Theme,
		project.Description,
		project.Cover,
		encodeFiles(project.Files),
		project.Status,
		project.ExecutorEmail,
	).Scan(&project.ID, &project.CreatedAt)
}

func loadCaseFilesTx(ctx context.Context, tx pgx.Tx, caseID int64) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT path FROM case_files WHERE case_id=$1 ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, rows.Err()
}

func applyOverrides(project *domain.Project, overrides ProjectOverrides) {
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
}

// encodeFiles serializes the attachment list for the projects.files column.
func encodeFiles(files []string) string {
	if files == nil {
		files = []string{}
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// decodeFiles deserializes the files column; absent or malformed content
// yields an empty list, never nil.
func decodeFiles(raw *string) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}
	var files []string
	if err := json.Unmarshal([]byte(*raw), &files); err != nil || files == nil {
		return []string{}
	}
	return files
}
