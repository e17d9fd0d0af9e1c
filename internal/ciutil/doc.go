// Package ciutil detects the execution environment of tests and locates the
// database they may run against.
//
// Tests that need PostgreSQL skip when no database URL is set locally, but
// must not silently skip in CI, where a missing database is a broken setup.
package ciutil
