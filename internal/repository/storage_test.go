package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"framekit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{Storage: config.StorageFile, DataDir: t.TempDir()}, logger)
	require.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.Projects)
	assert.Nil(t, s.Pool)

	_, err = Open(ctx, &config.Config{Storage: config.StoragePostgres}, logger)
	assert.Error(t, err)

	_, err = Open(ctx, &config.Config{Storage: "s3"}, logger)
	assert.Error(t, err)
}
