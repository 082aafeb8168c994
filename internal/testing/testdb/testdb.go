// Package testdb provides isolated Postgres schemas for database tests.
//
// Tests run against a real server named by TEST_DATABASE_URL and are skipped
// when it is unset. Each TestDB gets its own schema with the models migrated,
// so tests can run in parallel without seeing each other's rows.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//
//	    rows := tdb.MustQuery("SELECT * FROM job_postings", nil)
//	}
package testdb

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/model"
)

// EnvDatabaseURL names the variable holding the test server DSN
const EnvDatabaseURL = "TEST_DATABASE_URL"

// TestDB provides an isolated database environment for testing.
type TestDB struct {
	DB     *database.Postgres
	Schema string
	admin  *database.Postgres
	t      *testing.T
	once   sync.Once
}

var (
	// counterMu protects the schema counter
	counterMu sync.Mutex
	counter   int64
)

// Models returns every model the application migrates
func Models() []interface{} {
	return []interface{}{&model.JobPosting{}, &model.DigestSubscriber{}}
}

func tables() []string {
	return []string{model.JobPosting{}.TableName(), model.DigestSubscriber{}.TableName()}
}

// uniqueSchema generates a unique schema name for test isolation
func uniqueSchema() string {
	counterMu.Lock()
	defer counterMu.Unlock()
	counter++
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter)
}

// withSearchPath points a DSN at schema. Both URL and key=value forms are accepted.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return strings.TrimSpace(dsn) + " search_path=" + schema
}

// New creates an isolated schema with migrations applied. The schema is
// dropped when the test finishes.
func New(t *testing.T) *TestDB {
	t.Helper()

	base := os.Getenv(EnvDatabaseURL)
	if base == "" {
		t.Skipf("%s not set, skipping database test", EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin := database.NewPostgres(database.Config{DSN: base, MaxOpenConns: 1})
	if err := admin.Connect(ctx); err != nil {
		t.Fatalf("testdb: failed to connect: %v", err)
	}

	schema := uniqueSchema()
	if err := admin.Execute(ctx, "CREATE SCHEMA "+schema, nil); err != nil {
		_ = admin.Close()
		t.Fatalf("testdb: failed to create schema: %v", err)
	}

	db := database.NewPostgres(database.Config{DSN: withSearchPath(base, schema), MaxOpenConns: 4})
	tdb := &TestDB{DB: db, Schema: schema, admin: admin, t: t}
	t.Cleanup(tdb.Close)

	if err := db.Connect(ctx); err != nil {
		t.Fatalf("testdb: failed to connect to schema %s: %v", schema, err)
	}
	if err := db.Migrate(ctx, Models()...); err != nil {
		t.Fatalf("testdb: migration failed: %v", err)
	}

	return tdb
}

// Close drops the schema. New registers it with t.Cleanup; calling it
// again is a no-op.
func (tdb *TestDB) Close() {
	tdb.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = tdb.DB.Close()
		// Ignore errors on cleanup
		_ = tdb.admin.Execute(ctx, "DROP SCHEMA IF EXISTS "+tdb.Schema+" CASCADE", nil)
		_ = tdb.admin.Close()
	})
}

// Reset clears all data from tables while preserving schema.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()

	query := "TRUNCATE " + strings.Join(tables(), ", ")
	if err := tdb.DB.Execute(tdb.Ctx(), query, nil); err != nil {
		t.Fatalf("testdb: failed to truncate: %v", err)
	}
}

// Ctx returns a context with a reasonable timeout for test operations.
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustExec executes a statement and fails the test on error.
func (tdb *TestDB) MustExec(query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(tdb.Ctx(), query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}

// MustQuery executes a query and returns its rows, failing the test on error.
func (tdb *TestDB) MustQuery(query string, vars map[string]interface{}) []database.Row {
	tdb.t.Helper()
	rows, err := tdb.DB.Query(tdb.Ctx(), query, vars)
	if err != nil {
		tdb.t.Fatalf("testdb: query failed: %v\nQuery: %s", err, query)
	}
	return rows
}
