package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/recipe-forge/internal/ciutil"
	"github.com/phrazzld/recipe-forge/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connecting and migrating.
const TestTimeout = 30 * time.Second

// migrateOnce applies the migrations once per test binary.
var (
	migrateOnce sync.Once
	migrateErr  error
)

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return ciutil.GetTestDatabaseURL(nil) == ""
}

// Open connects to the test database and applies the ledger migrations. The
// connection is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := ciutil.GetTestDatabaseURL(nil)
	if dbURL == "" {
		if ciutil.IsCI() {
			t.Fatalf("no test database configured in CI: set %s", ciutil.EnvDatabaseURL)
		}
		t.Skipf("%s not set, skipping database test", ciutil.EnvDatabaseURL)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, dbURL, quiet)
	require.NoError(t, err, "failed to connect to test database %s", postgres.MaskDatabaseURL(dbURL))
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, quiet)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")
	return db
}
