package ciutil

import "log/slog"

// GetTestDatabaseURL returns the database URL integration tests run against,
// checking DATABASE_URL, FORGE_TEST_DB_URL and FORGE_DATABASE_URL in that
// order. It returns "" when none is set.
func GetTestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvDatabaseURL, EnvForgeTestDBURL, EnvForgeDatabaseURL}, "", logger)
}
