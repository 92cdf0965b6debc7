package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/pipeline"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	server, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,

		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "labels",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Terminate(context.Background()) })

	endpoint, err := server.Endpoint(ctx, "")
	require.NoError(t, err)

	db, err := sql.Open("pgx", "postgres://postgres:test@"+endpoint+"/labels?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestResultRepo(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	repo := NewResultRepo(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	key := ResultKey{DocHash: "abc", Engine: "gemini", Model: "gemini-2.5-flash", Pages: "2-3"}

	_, err := repo.Find(ctx, key, 0)
	assert.True(t, errors.Is(err, ErrNotFound))

	angle := 90
	records := []pipeline.Record{{
		Components:   []string{"10", "20"},
		Hierarchy:    []json.RawMessage{json.RawMessage(`{"parent":"10","children":["20"]}`)},
		Figure:       "FIG. 1",
		Page:         2,
		PageRotation: &angle,
	}}

	require.NoError(t, repo.Upsert(ctx, key, "run-1", records))

	row, err := repo.Find(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "run-1", row.RunID)
	require.Len(t, row.Records, 1)
	assert.Equal(t, []string{"10", "20"}, row.Records[0].Components)
	assert.Equal(t, 90, *row.Records[0].PageRotation)

	other := key
	other.ShowRotation = true
	_, err = repo.Find(ctx, other, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, key, "run-2", nil))
	row, err = repo.Find(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "run-2", row.RunID)
	assert.Empty(t, row.Records)

	_, err = db.ExecContext(ctx, `update extraction_results set created_at = now() - interval '2 hours'`)
	require.NoError(t, err)

	_, err = repo.Find(ctx, key, time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.PurgeOlderThan(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.PurgeOlderThan(ctx, 0)
	assert.Error(t, err)
}
