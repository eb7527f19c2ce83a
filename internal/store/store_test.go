// store_test.go provides shared helpers for the store tests: a migrated
// PostgreSQL connection for integration tests (skipped when PostgreSQL is
// not available) and a sqlmock connection for transactional unit tests.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/database"
	"pagebuilder/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "pagebuilder")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "pagebuilder")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Reset goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// newMock returns a sqlmock-backed *sql.DB.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// createTestTemplate inserts a template and removes it (with its tree) when
// the test ends.
func createTestTemplate(t *testing.T, db *sql.DB, handle string) *models.Template {
	t.Helper()
	db.Exec("DELETE FROM templates WHERE handle = $1", handle)

	tmpl, err := NewTemplateStore(db).Create(context.Background(), &models.Template{
		Name: "Test " + handle, Handle: handle,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Exec("DELETE FROM templates WHERE id = $1", tmpl.ID) })
	return tmpl
}

// createTestUser inserts a user and removes it when the test ends.
func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	db.Exec("DELETE FROM users WHERE email = $1", email)

	u, err := NewUserStore(db).Create(context.Background(), "Test User", email, models.RoleMember)
	require.NoError(t, err)
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	return u
}
