package repositories

import (
	"context"

	"framekit/internal/domain/models"
)

// ResourceDocumentRepository stores the serialised resource tree of each project.
// There is at most one document per project.
type ResourceDocumentRepository interface {
	// Load returns the stored document. A project that was never saved yields
	// domain.ErrNotFound.
	Load(ctx context.Context, projectID string) (*models.ResourceDocument, error)

	// Save replaces the stored document and sets UpdatedAt
	Save(ctx context.Context, doc *models.ResourceDocument) error

	// Delete removes the stored document. Deleting a missing document is not an error.
	Delete(ctx context.Context, projectID string) error
}
