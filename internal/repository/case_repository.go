package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ideaflow/internal/domain"
)

// CaseFilter captures listing parameters.
type CaseFilter struct {
	OwnerID    *int64
	ExecutorID *int64
}

// CaseRepository encapsulates case persistence. Attachments live in the
// append-only case_files table; every read assembles them in insertion order.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id int64) (*domain.Case, error)
	List(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
	// Accept binds an executor to an open, unclaimed case. Returns
	// pgx.ErrNoRows when no row matched the guard; callers distinguish
	// missing from already-claimed with a follow-up read.
	Accept(ctx context.Context, caseID, executorID int64) error
	// AppendFiles adds attachment rows and returns the full ordered list.
	AppendFiles(ctx context.Context, caseID int64, paths []string) ([]string, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO cases (user_id, title, theme, description, cover, status, executor_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		c.UserID,
		c.Title,
		c.Theme,
		c.Description,
		c.Cover,
		c.Status,
		c.ExecutorID,
	).Scan(&c.ID, &c.CreatedAt); err != nil {
		return err
	}

	for _, path := range c.Files {
		if _, err := tx.Exec(ctx,
			`INSERT INTO case_files (case_id, path) VALUES ($1,$2)`, c.ID, path); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *caseRepository) GetByID(ctx context.Context, id int64) (*domain.Case, error) {
	const query = `
        SELECT c.id, c.user_id, c.title, c.theme, c.description, c.cover,
               c.status, c.executor_id, c.created_at, u.email
        FROM cases c
        LEFT JOIN users u ON c.user_id = u.id
        WHERE c.id=$1`

	var result domain.Case
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&result.ID,
		&result.UserID,
		&result.Title,
		&result.Theme,
		&result.Description,
		&result.Cover,
		&result.Status,
		&result.ExecutorID,
		&result.CreatedAt,
		&result.OwnerEmail,
	); err != nil {
		return nil, err
	}

	files, err := r.loadFiles(ctx, []int64{result.ID})
	if err != nil {
		return nil, err
	}
	result.Files = files[result.ID]
	if result.Files == nil {
		result.Files = []string{}
	}
	return &result, nil
}

func (r *caseRepository) List(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	base := `SELECT c.id, c.user_id, c.title, c.theme, c.description, c.cover,
                    c.status, c.executor_id, c.created_at, u.email
             FROM cases c
             LEFT JOIN users u ON c.user_id = u.id`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("c.user_id=$%d", len(args)))
	}
	if filter.ExecutorID != nil {
		args = append(args, *filter.ExecutorID)
		clauses = append(clauses, fmt.Sprintf("c.executor_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY c.created_at DESC, c.id DESC`,
		base, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := scanCases(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(result))
	for i := range result {
		ids = append(ids, result[i].ID)
	}
	files, err := r.loadFiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Files = files[result[i].ID]
		if result[i].Files == nil {
			result[i].Files = []string{}
		}
	}
	return result, nil
}

func (r *caseRepository) Accept(ctx context.Context, caseID, executorID int64) error {
	const query = `
        UPDATE cases SET status=$1, executor_id=$2
        WHERE id=$3 AND status=$4 AND executor_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		domain.CaseStatusInProcess,
		executorID,
		caseID,
		domain.CaseStatusOpen,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) AppendFiles(ctx context.Context, caseID int64, paths []string) ([]string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cases WHERE id=$1)`, caseID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, pgx.ErrNoRows
	}

	for _, path := range paths {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO case_files (case_id, path) VALUES ($1,$2)`, caseID, path); err != nil {
			return nil, err
		}
	}

	files, err := r.loadFiles(ctx, []int64{caseID})
	if err != nil {
		return nil, err
	}
	if files[caseID] == nil {
		return []string{}, nil
	}
	return files[caseID], nil
}

func (r *caseRepository) loadFiles(ctx context.Context, caseIDs []int64) (map[int64][]string, error) {
	const query = `
        SELECT case_id, path FROM case_files
        WHERE case_id = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, caseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]string, len(caseIDs))
	for rows.Next() {
		var caseID int64
		var path string
		if err := rows.Scan(&caseID, &path); err != nil {
			return nil, err
		}
		result[caseID] = append(result[caseID], path)
	}
	return result, rows.Err()
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Title,
			&c.Theme,
			&c.Description,
			&c.Cover,
			&c.Status,
			&c.ExecutorID,
			&c.CreatedAt,
			&c.OwnerEmail,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
