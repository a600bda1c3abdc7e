package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/config"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_audit.sql", names[0])

	content, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "ticket_status_history")
	assert.Contains(t, string(content), "ticket_audit_log")
}

func TestWithoutConnections(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(ctx), ErrNotConfigured)
	pg.Close()

	rd := NewRedis(ctx, config.RedisConfig{}, logger)
	assert.False(t, rd.Enabled())
	assert.ErrorIs(t, rd.Ping(ctx), ErrNotConfigured)
	rd.Close()

	assert.NoError(t, RunMigrations(ctx, nil, logger))
}
