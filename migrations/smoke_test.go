package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-reviewers/migrations"
)

func TestMigrationsApplyToSQLite(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := context.Background()
	for _, fsys := range migrations.Filesystems() {
		require.NoError(t, applyFilesystem(ctx, db, fsys, "sqlite/*.up.sql"))
	}

	for _, table := range []string{"review_permission_profiles", "review_assignments", "review_assignment_events", "review_assignment_backlog"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}
	require.NoError(t, migrations.ValidateSchema(ctx, db, "sqlite3"))
}

func TestHoldingIndexRejectsSecondActiveAssignment(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := context.Background()
	for _, fsys := range migrations.Filesystems() {
		require.NoError(t, applyFilesystem(ctx, db, fsys, "sqlite/*.up.sql"))
	}

	insert := `INSERT INTO review_assignments (id, review_task_id, reviewer_id, status, assigned_at)
		VALUES (?, 'task-1', ?, ?, CURRENT_TIMESTAMP)`
	_, err := db.ExecContext(ctx, insert, "a-1", "r-1", "rejected")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "a-2", "r-2", "active")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "a-3", "r-3", "accepted")
	require.Error(t, err)
}

func TestValidateSchemaReportsMissingTables(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	err := migrations.ValidateSchema(context.Background(), db, "sqlite")
	var schemaErr *migrations.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	require.Len(t, schemaErr.MissingTables, len(migrations.DefaultTableChecks))
	require.Contains(t, err.Error(), "review_assignments")

	require.Error(t, migrations.ValidateSchema(context.Background(), db, "mysql"))
}

func TestPostgresMigrationsPairUpAndDown(t *testing.T) {
	t.Parallel()

	for _, fsys := range migrations.Filesystems() {
		ups, err := fs.Glob(fsys, "*.up.sql")
		require.NoError(t, err)
		require.NotEmpty(t, ups)
		for _, up := range ups {
			down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
			_, err := fs.Stat(fsys, down)
			require.NoError(t, err, down)
			_, err = fs.Stat(fsys, "sqlite/"+up)
			require.NoError(t, err, "sqlite override for "+up)
		}
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func applyFilesystem(ctx context.Context, db *sql.DB, filesystem fs.FS, pattern string) error {
	entries, err := fs.Glob(filesystem, pattern)
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, entry := range entries {
		sqlBytes, err := fs.ReadFile(filesystem, entry)
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(sqlBytes)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func TestRegisterReplacesNamedSource(t *testing.T) {
	sources := migrations.Sources()
	require.NotEmpty(t, sources)
	require.Equal(t, migrations.EngineSource, sources[0].Name)

	migrations.Register(migrations.EngineSource, sources[0].FS)
	migrations.Register("ignored", nil)
	require.Len(t, migrations.Sources(), len(sources))
	require.Len(t, migrations.Filesystems(), len(sources))
}
