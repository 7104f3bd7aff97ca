// Package projects manages project records and their stored resource documents.
package projects

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"framekit/internal/config"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"
	svc "framekit/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo repositories.ProjectRepository
	docRepo     repositories.ResourceDocumentRepository
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	docRepo repositories.ResourceDocumentRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) svc.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateProject creates a new project. Its resource document is written on first save.
func (s *projectService) CreateProject(ctx context.Context, req *svc.CreateProjectRequest) (*models.Project, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &models.Project{
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
	)
	return project, nil
}

// GetProject retrieves a project by ID
func (s *projectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// ListProjects retrieves all projects
func (s *projectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.projectRepo.List(ctx)
}

// UpdateProject renames a project
func (s *projectService) UpdateProject(ctx context.Context, id string, req *svc.UpdateProjectRequest) (*models.Project, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Rename(ctx, id, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}

	s.logger.Info("project updated",
		"id", project.ID,
		"name", project.Name,
	)
	return project, nil
}

// DeleteProject soft-deletes the project and drops its resource document
func (s *projectService) DeleteProject(ctx context.Context, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.projectRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("project deleted", "id", id)
	return nil
}

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxProjectNameLength),
		validation.By(notBlank),
	)
	if err != nil {
		return fmt.Errorf("%w: name: %v", domain.ErrValidation, err)
	}
	return nil
}

func notBlank(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return fmt.Errorf("name must be a string")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}
