package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruet-portal/portal-backend/internal/database"
	"github.com/ruet-portal/portal-backend/internal/model"
)

func tempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func insertStudent(t *testing.T, repo *StudentRepo, s model.Student) {
	t.Helper()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Dept == "" {
		s.Dept = "CSE"
	}
	if s.PasswordHash == "" {
		s.PasswordHash = "hash"
	}
	ctx := context.Background()
	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, &s))
	require.NoError(t, tx.Commit())
}
