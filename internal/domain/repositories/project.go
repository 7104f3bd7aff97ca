package repositories

import (
	"context"

	"framekit/internal/domain/models"
)

// ProjectRepository defines data access operations for projects
type ProjectRepository interface {
	// Create creates a new project and fills in its generated ID and timestamps
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*models.Project, error)

	// List retrieves all projects, ordered by updated_at DESC
	List(ctx context.Context) ([]models.Project, error)

	// Rename changes a project's name and bumps updated_at
	Rename(ctx context.Context, id, name string) (*models.Project, error)

	// Touch bumps updated_at after the project's resources were saved
	Touch(ctx context.Context, id string) error

	// Delete soft-deletes a project
	Delete(ctx context.Context, id string) error
}
