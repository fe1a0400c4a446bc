package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/infra/config"
)

func TestReconcileWindow(t *testing.T) {
	now := time.Date(2025, 12, 30, 22, 0, 0, 0, time.UTC)

	cmd := reconcileWindow(now, 5)
	assert.Equal(t, "2025-12-30", cmd.From)
	assert.Equal(t, "2026-01-03", cmd.To)

	single := reconcileWindow(now, 0)
	assert.Equal(t, single.From, single.To)
}

func TestMemoryWiring(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := openStores(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer st.close(logger)
	assert.Nil(t, st.claims)
	assert.Empty(t, st.checks)

	app, err := buildApplication(cfg, st, logger)
	require.NoError(t, err)
	assert.NotNil(t, app.handlers.Reservations)
	assert.NotNil(t, app.handlers.Sessions)
	assert.NotNil(t, app.handlers.Cache)
}

func TestSQLiteWiring(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file::memory:")
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := openStores(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer st.close(logger)
	require.Contains(t, st.checks, "sql")
	assert.NoError(t, st.checks["sql"](context.Background()))
}
