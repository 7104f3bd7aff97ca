// Package seed imports projects and their resource trees from YAML fixtures.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"
	"framekit/internal/resource"

	"gopkg.in/yaml.v3"
)

// Fixture is the root of a seed file
type Fixture struct {
	Projects []ProjectFixture `yaml:"projects"`
}

// ProjectFixture describes one project and the tree under its root folder
type ProjectFixture struct {
	Name      string            `yaml:"name"`
	Resources []ResourceFixture `yaml:"resources"`
}

// ResourceFixture is a folder when Folder is set, otherwise an item of Kind
type ResourceFixture struct {
	Folder   string            `yaml:"folder,omitempty"`
	Children []ResourceFixture `yaml:"children,omitempty"`

	Name string        `yaml:"name,omitempty"`
	Kind string        `yaml:"kind,omitempty"`
	ID   uint64        `yaml:"id,omitempty"`
	Data docmodel.Dict `yaml:"data,omitempty"`
	// Online false stores the item as disabled by the user
	Online *bool `yaml:"online,omitempty"`
}

// ParseFixture reads a YAML fixture
func ParseFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads a YAML fixture file
func LoadFixture(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseFixture(file)
}

// Result counts what Import wrote
type Result struct {
	Projects int
	Replaced int
	Items    int
	Folders  int
}

// Seeder writes fixtures through the repositories
type Seeder struct {
	projectRepo repositories.ProjectRepository
	docRepo     repositories.ResourceDocumentRepository
	txManager   repositories.TransactionManager
	registry    *resource.Registry
	logger      *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(
	projectRepo repositories.ProjectRepository,
	docRepo repositories.ResourceDocumentRepository,
	txManager repositories.TransactionManager,
	registry *resource.Registry,
	logger *slog.Logger,
) *Seeder {
	if registry == nil {
		registry = resource.DefaultRegistry()
	}
	return &Seeder{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		txManager:   txManager,
		registry:    registry,
		logger:      logger,
	}
}

// Import creates every project of the fixture. A project whose name already exists has
// its stored tree replaced.
func (s *Seeder) Import(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	for i, pf := range f.Projects {
		name := strings.TrimSpace(pf.Name)
		if name == "" {
			return res, &domain.ValidationError{Message: fmt.Sprintf("project %d: name is required", i)}
		}

		manager := resource.NewManager(s.logger)
		if err := s.build(manager.Root(), pf.Resources, &res); err != nil {
			return res, fmt.Errorf("project %q: %w", name, err)
		}
		data := docmodel.NewDict()
		manager.Serialise(data)

		existingID, err := s.findProject(ctx, name)
		if err != nil {
			return res, err
		}
		replaced := existingID != ""
		err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			projectID := existingID
			if projectID == "" {
				now := time.Now().UTC()
				project := &models.Project{Name: name, CreatedAt: now, UpdatedAt: now}
				if err := s.projectRepo.Create(txCtx, project); err != nil {
					return err
				}
				projectID = project.ID
			} else if err := s.projectRepo.Touch(txCtx, projectID); err != nil {
				return err
			}
			return s.docRepo.Save(txCtx, &models.ResourceDocument{ProjectID: projectID, Data: data})
		})
		if err != nil {
			return res, fmt.Errorf("project %q: %w", name, err)
		}

		res.Projects++
		if replaced {
			res.Replaced++
		}
		s.logger.Info("project seeded",
			"name", name,
			"replaced", replaced,
			"items", manager.Len(),
		)
		if err := manager.Clear(); err != nil {
			s.logger.Warn("releasing seeded tree", "name", name, "error", err)
		}
	}
	return res, nil
}

// findProject returns the ID of the live project called name, or ""
func (s *Seeder) findProject(ctx context.Context, name string) (string, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return "", nil
}

func (s *Seeder) build(parent *resource.Folder, fixtures []ResourceFixture, res *Result) error {
	for _, rf := range fixtures {
		if rf.Folder != "" {
			if rf.Kind != "" {
				return &domain.ValidationError{Message: fmt.Sprintf("folder %q cannot have a kind", rf.Folder)}
			}
			folder := resource.NewFolder(rf.Folder)
			if err := parent.AddItem(folder); err != nil {
				return err
			}
			res.Folders++
			if err := s.build(folder, rf.Children, res); err != nil {
				return err
			}
			continue
		}

		item, err := s.newItem(rf)
		if err != nil {
			return err
		}
		if err := parent.AddItem(item); err != nil {
			return err
		}
		res.Items++
	}
	return nil
}

func (s *Seeder) newItem(rf ResourceFixture) (*resource.Item, error) {
	if len(rf.Children) > 0 {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("item %q cannot have children", rf.Name)}
	}
	if rf.Kind == resource.FolderKind {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("item %q: use folder: to declare folders", rf.Name)}
	}
	content, err := s.registry.NewContent(rf.Kind)
	if err != nil {
		return nil, err
	}
	if rf.Data != nil {
		if err := content.Deserialise(rf.Data); err != nil {
			return nil, fmt.Errorf("item %q: %w: %v", rf.Name, domain.ErrValidation, err)
		}
	}

	item := resource.NewItem(rf.Name, content)
	if rf.ID != resource.EmptyID {
		if err := item.SetPresetID(rf.ID); err != nil {
			return nil, err
		}
	}
	if rf.Online != nil && !*rf.Online {
		// offline by user is only recorded on the way down from online
		if err := item.Enable(); err != nil {
			return nil, err
		}
		if err := item.Disable(true); err != nil {
			return nil, err
		}
	}
	return item, nil
}
