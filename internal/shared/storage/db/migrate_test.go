package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsCreateOrders(t *testing.T) {
	names, err := fs.Glob(migrationFiles, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, migrationsDir+"/00001_create_orders.sql", names[0])

	raw, err := fs.ReadFile(migrationFiles, names[0])
	require.NoError(t, err)
	sql := string(raw)
	for _, want := range []string{
		"-- +goose Up",
		"-- +goose Down",
		"CREATE TABLE IF NOT EXISTS orders",
		"orders_correlation_token_idx",
	} {
		assert.True(t, strings.Contains(sql, want), "migration missing %q", want)
	}
}

func TestRunMigrationsNilDatabase(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil))
}
