// Package pgtest connects tests to a real PostgreSQL database.
//
// Tests using it are skipped unless TEST_DATABASE_URL is set.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/deviation-service/internal/audit"
)

// EnvURL names the variable holding the test database URL.
const EnvURL = "TEST_DATABASE_URL"

// Pool returns a pool with the service schema applied. The pool is closed
// when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set; skipping database test", EnvURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	if err := audit.NewPostgresRecorder(pool).EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return pool
}

// UniqueName returns prefix with a random suffix, for rows that must not
// collide across runs.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// CreateUser inserts a login user and deletes it when the test ends.
func CreateUser(t *testing.T, pool *pgxpool.Pool, email, password string, roles ...string) string {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"user"}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	var id string
	err = pool.QueryRow(ctx,
		`INSERT INTO users (name, email, hashed_password, roles) VALUES ($1, $2, $3, $4) RETURNING id`,
		"Test User", email, string(hashed), roles,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

// DeleteEvents removes a workflow's audit rows when the test ends.
func DeleteEvents(t *testing.T, pool *pgxpool.Pool, workflow string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM revision_events WHERE workflow = $1`, workflow)
	})
}
