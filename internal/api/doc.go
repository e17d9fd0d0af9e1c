// Package api serves the artifacts a pipeline run produced over HTTP: the
// list of generated items, each stored artifact, and, when the run ledger is
// enabled, the recorded outcomes and batch jobs of a run. It is read-only;
// nothing here triggers generation.
package api
