package postgres

import (
	"context"
	"fmt"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresResourceDocumentRepository keeps one JSONB document per project
type PostgresResourceDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewResourceDocumentRepository creates a new resource document repository
func NewResourceDocumentRepository(config *RepositoryConfig) repositories.ResourceDocumentRepository {
	return &PostgresResourceDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Load retrieves the stored document of a project
func (r *PostgresResourceDocumentRepository) Load(ctx context.Context, projectID string) (*models.ResourceDocument, error) {
	query := fmt.Sprintf(`
		SELECT project_id, data, updated_at
		FROM %s
		WHERE project_id = $1
	`, r.tables.ResourceDocuments)

	doc := models.ResourceDocument{}
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, projectID).Scan(&doc.ProjectID, &doc.Data, &doc.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no resources saved for project %s", projectID)}
		}
		return nil, fmt.Errorf("load resource document: %w", err)
	}
	if doc.Data == nil {
		doc.Data = docmodel.NewDict()
	}
	return &doc, nil
}

// Save upserts the document
func (r *PostgresResourceDocumentRepository) Save(ctx context.Context, doc *models.ResourceDocument) error {
	payload, err := docmodel.EncodeJSON(doc.Data)
	if err != nil {
		return fmt.Errorf("encode resource document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (project_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`, r.tables.ResourceDocuments)

	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, doc.ProjectID, string(payload)).Scan(&doc.UpdatedAt); err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", doc.ProjectID)}
		}
		return fmt.Errorf("save resource document: %w", err)
	}
	return nil
}

// Delete removes the stored document
func (r *PostgresResourceDocumentRepository) Delete(ctx context.Context, projectID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1`, r.tables.ResourceDocuments)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, projectID); err != nil {
		return fmt.Errorf("delete resource document: %w", err)
	}
	return nil
}
