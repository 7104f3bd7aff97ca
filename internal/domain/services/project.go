package services

import (
	"context"

	"framekit/internal/domain/models"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// UpdateProjectRequest represents a request to rename a project
type UpdateProjectRequest struct {
	Name string `json:"name"`
}

// ProjectService defines business logic operations for projects
type ProjectService interface {
	// CreateProject creates a project with an empty resource tree
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error)

	// GetProject retrieves a project by ID
	GetProject(ctx context.Context, id string) (*models.Project, error)

	// ListProjects retrieves all projects
	ListProjects(ctx context.Context) ([]models.Project, error)

	// UpdateProject renames a project
	UpdateProject(ctx context.Context, id string, req *UpdateProjectRequest) (*models.Project, error)

	// DeleteProject deletes a project and its stored resource tree
	DeleteProject(ctx context.Context, id string) error
}
