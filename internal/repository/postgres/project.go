package postgres

import (
	"context"
	"fmt"
	"time"

	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *RepositoryConfig) repositories.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.CreatedAt,
		project.UpdatedAt,
	).Scan(&project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			existingID, queryErr := r.getExistingProjectID(ctx, project.Name)
			if queryErr != nil {
				return fmt.Errorf("project '%s' already exists: %w", project.Name, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project '%s' already exists", project.Name),
				ResourceType: "project",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	query := fmt.Sprintf(`
		SELECT id, name, created_at, updated_at
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Projects)

	var project models.Project
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

// List retrieves all projects, ordered by updated_at DESC
func (r *PostgresProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at, updated_at
		FROM %s
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var project models.Project
		if err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// Rename changes a project's name
func (r *PostgresProjectRepository) Rename(ctx context.Context, id, name string) (*models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING id, name, created_at, updated_at
	`, r.tables.Projects)

	var project models.Project
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, name, time.Now(), id).Scan(
		&project.ID,
		&project.Name,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
		}
		if IsPgDuplicateError(err) {
			existingID, _ := r.getExistingProjectID(ctx, name)
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("project '%s' already exists", name),
				ResourceType: "project",
				ResourceID:   existingID,
			}
		}
		return nil, fmt.Errorf("rename project: %w", err)
	}
	return &project, nil
}

// Touch bumps updated_at
func (r *PostgresProjectRepository) Touch(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	return nil
}

// Delete soft-deletes a project
func (r *PostgresProjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	return nil
}

// getExistingProjectID finds the live project holding name
func (r *PostgresProjectRepository) getExistingProjectID(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE name = $1 AND deleted_at IS NULL
	`, r.tables.Projects)

	var id string
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
