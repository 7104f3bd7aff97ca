// Package repository selects the storage backend the binaries run on.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"framekit/internal/config"
	"framekit/internal/domain/repositories"
	"framekit/internal/repository/filestore"
	"framekit/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage bundles the repositories of one backend
type Storage struct {
	Projects  repositories.ProjectRepository
	Documents repositories.ResourceDocumentRepository
	Tx        repositories.TransactionManager

	// Pool and Tables are set for the postgres backend only
	Pool   *pgxpool.Pool
	Tables *postgres.TableNames
}

// Close releases the backend's connections
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Open connects to the backend named by cfg.Storage
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for %s storage", cfg.Storage)
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)
		return &Storage{
			Projects:  postgres.NewProjectRepository(repoConfig),
			Documents: postgres.NewResourceDocumentRepository(repoConfig),
			Tx:        postgres.NewTransactionManager(repoConfig),
			Pool:      pool,
			Tables:    repoConfig.Tables,
		}, nil

	case config.StorageFile:
		store, err := filestore.NewStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("file storage ready", "data_dir", cfg.DataDir)
		return &Storage{
			Projects:  filestore.NewProjectRepository(store),
			Documents: filestore.NewResourceDocumentRepository(store),
			Tx:        filestore.NewTransactionManager(store),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}
