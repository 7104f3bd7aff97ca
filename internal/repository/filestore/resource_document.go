package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"
)

// ResourceDocumentRepository stores each project's tree as canonical CBOR
type ResourceDocumentRepository struct {
	store *Store
}

// NewResourceDocumentRepository creates a new resource document repository
func NewResourceDocumentRepository(store *Store) repositories.ResourceDocumentRepository {
	return &ResourceDocumentRepository{store: store}
}

// Load reads the document of a project
func (r *ResourceDocumentRepository) Load(ctx context.Context, projectID string) (*models.ResourceDocument, error) {
	if err := checkID(projectID); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	path := filepath.Join(r.store.projectDir(projectID), resourcesFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no resources saved for project %s", projectID)}
		}
		return nil, fmt.Errorf("read resource document: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat resource document: %w", err)
	}

	data, err := docmodel.DecodeCBOR(raw)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	return &models.ResourceDocument{
		ProjectID: projectID,
		Data:      data,
		UpdatedAt: info.ModTime().UTC(),
	}, nil
}

// Save replaces the document of a project. The project directory must exist.
func (r *ResourceDocumentRepository) Save(ctx context.Context, doc *models.ResourceDocument) error {
	if err := checkID(doc.ProjectID); err != nil {
		return err
	}
	raw, err := docmodel.EncodeCBOR(doc.Data)
	if err != nil {
		return fmt.Errorf("encode resource document: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	dir := r.store.projectDir(doc.ProjectID)
	if _, err := os.Stat(filepath.Join(dir, projectFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", doc.ProjectID)}
		}
		return fmt.Errorf("stat project: %w", err)
	}
	if err := writeAtomic(dir, resourcesFile, raw); err != nil {
		return fmt.Errorf("write resource document: %w", err)
	}
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the document of a project
func (r *ResourceDocumentRepository) Delete(ctx context.Context, projectID string) error {
	if err := checkID(projectID); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	err := os.Remove(filepath.Join(r.store.projectDir(projectID), resourcesFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete resource document: %w", err)
	}
	return nil
}
