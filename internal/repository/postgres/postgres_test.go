package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("test_")
	if tables.Projects != "test_projects" {
		t.Errorf("Projects = %q", tables.Projects)
	}
	if tables.ResourceDocuments != "test_resource_documents" {
		t.Errorf("ResourceDocuments = %q", tables.ResourceDocuments)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		duplicate bool
		foreign   bool
		noRows    bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true, false, false},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true, false, false},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false, true, false},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), false, false, true},
		{"other", errors.New("boom"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPgDuplicateError(tt.err); got != tt.duplicate {
				t.Errorf("IsPgDuplicateError = %v", got)
			}
			if got := IsPgForeignKeyError(tt.err); got != tt.foreign {
				t.Errorf("IsPgForeignKeyError = %v", got)
			}
			if got := IsPgNoRowsError(tt.err); got != tt.noRows {
				t.Errorf("IsPgNoRowsError = %v", got)
			}
		})
	}
}

// TestRepositories_Integration runs against a real database when TEST_DATABASE_URL is set
func TestRepositories_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, url, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	prefix := fmt.Sprintf("it%d_", time.Now().UnixNano())
	tables := NewTableNames(prefix)
	if err := EnsureSchema(ctx, pool, tables, prefix); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = DropSchema(ctx, pool, tables) }()

	config := &RepositoryConfig{Pool: pool, Tables: tables}
	projects := NewProjectRepository(config)
	docs := NewResourceDocumentRepository(config)

	now := time.Now()
	p := &models.Project{Name: "Demo", CreatedAt: now, UpdatedAt: now}
	if err := projects.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	var conflict *domain.ConflictError
	if err := projects.Create(ctx, &models.Project{Name: "Demo", CreatedAt: now, UpdatedAt: now}); !errors.As(err, &conflict) || conflict.ResourceID != p.ID {
		t.Fatalf("duplicate create error = %v", err)
	}

	if _, err := docs.Load(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load before save error = %v", err)
	}
	data := docmodel.NewDict()
	data.SetUint64("CurrId", 1<<62)
	if err := docs.Save(ctx, &models.ResourceDocument{ProjectID: p.ID, Data: data}); err != nil {
		t.Fatal(err)
	}
	got, err := docs.Load(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Data.GetUint64("CurrId", 0) != 1<<62 {
		t.Errorf("CurrId = %v", got.Data["CurrId"])
	}

	if err := projects.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := projects.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID after delete error = %v", err)
	}
}
