package ciutil

import (
	"testing"

	"github.com/phrazzld/recipe-forge/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func clearCI(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		t.Setenv(name, "")
	}
}

func TestIsCI(t *testing.T) {
	clearCI(t)
	assert.False(t, IsCI())

	for _, name := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		t.Run(name, func(t *testing.T) {
			clearCI(t)
			t.Setenv(name, "true")
			assert.True(t, IsCI())
		})
	}
}

func TestGetEnvWithFallbacks(t *testing.T) {
	buf, log := logger.NewTestLogger(t)
	t.Setenv("FORGE_PRIMARY", "")
	t.Setenv("FORGE_SECONDARY", "")

	vars := []string{"FORGE_PRIMARY", "FORGE_SECONDARY"}
	assert.Equal(t, "fallback", GetEnvWithFallbacks(vars, "fallback", log))

	t.Setenv("FORGE_SECONDARY", "second")
	assert.Equal(t, "second", GetEnvWithFallbacks(vars, "", log))
	assert.Contains(t, buf.String(), "using fallback environment variable")

	t.Setenv("FORGE_PRIMARY", "first")
	assert.Equal(t, "first", GetEnvWithFallbacks(vars, "", nil))
}

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvForgeTestDBURL, "")
	t.Setenv(EnvForgeDatabaseURL, "")
	assert.Empty(t, GetTestDatabaseURL(nil))

	t.Setenv(EnvForgeDatabaseURL, "postgres://forge@localhost/forge")
	assert.Equal(t, "postgres://forge@localhost/forge", GetTestDatabaseURL(nil))

	t.Setenv(EnvDatabaseURL, "postgres://main@localhost/main")
	assert.Equal(t, "postgres://main@localhost/main", GetTestDatabaseURL(nil))
}
