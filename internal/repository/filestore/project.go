package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// projectMeta is the on-disk shape of project.yaml
type projectMeta struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	CreatedAt time.Time  `yaml:"created_at"`
	UpdatedAt time.Time  `yaml:"updated_at"`
	DeletedAt *time.Time `yaml:"deleted_at,omitempty"`
}

func (m projectMeta) toModel() models.Project {
	return models.Project{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		DeletedAt: m.DeletedAt,
	}
}

// ProjectRepository implements repositories.ProjectRepository on a Store
type ProjectRepository struct {
	store *Store
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(store *Store) repositories.ProjectRepository {
	return &ProjectRepository{store: store}
}

// Create writes a new project directory
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.checkNameFree(project.Name, ""); err != nil {
		return err
	}

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = now
	}
	return r.write(projectMeta{
		ID:        project.ID,
		Name:      project.Name,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	})
}

// GetByID reads one project
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	meta, err := r.read(id)
	if err != nil {
		return nil, err
	}
	p := meta.toModel()
	return &p, nil
}

// List returns every live project, most recently updated first
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	metas, err := r.readAll()
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(metas))
	for _, m := range metas {
		projects = append(projects, m.toModel())
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

// Rename changes the project's name
func (r *ProjectRepository) Rename(ctx context.Context, id, name string) (*models.Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	meta, err := r.read(id)
	if err != nil {
		return nil, err
	}
	if err := r.checkNameFree(name, id); err != nil {
		return nil, err
	}
	meta.Name = name
	meta.UpdatedAt = time.Now().UTC()
	if err := r.write(meta); err != nil {
		return nil, err
	}
	p := meta.toModel()
	return &p, nil
}

// Touch bumps updated_at
func (r *ProjectRepository) Touch(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	meta, err := r.read(id)
	if err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	return r.write(meta)
}

// Delete marks the project deleted. Its resource document stays on disk.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	meta, err := r.read(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	meta.DeletedAt = &now
	return r.write(meta)
}

// checkNameFree fails with a conflict when a live project other than self holds name
func (r *ProjectRepository) checkNameFree(name, self string) error {
	metas, err := r.readAll()
	if err != nil {
		return err
	}
	for _, m := range metas {
		if m.Name == name && m.ID != self {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project '%s' already exists", name),
				ResourceType: "project",
				ResourceID:   m.ID,
			}
		}
	}
	return nil
}

func (r *ProjectRepository) read(id string) (projectMeta, error) {
	var meta projectMeta
	if err := checkID(id); err != nil {
		return meta, err
	}
	raw, err := os.ReadFile(filepath.Join(r.store.projectDir(id), projectFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
		}
		return meta, fmt.Errorf("read project: %w", err)
	}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("parse project %s: %w", id, err)
	}
	if meta.DeletedAt != nil {
		return meta, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	return meta, nil
}

func (r *ProjectRepository) readAll() ([]projectMeta, error) {
	entries, err := os.ReadDir(r.store.dir)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var metas []projectMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := r.read(e.Name())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			r.store.logger.Warn("skipping unreadable project", "dir", e.Name(), "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (r *ProjectRepository) write(meta projectMeta) error {
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := writeAtomic(r.store.projectDir(meta.ID), projectFile, raw); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}
