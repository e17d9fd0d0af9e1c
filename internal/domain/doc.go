// Package domain contains the core entities of the generation pipeline: the
// work item that tracks one unit of generation work from catalog to artifact,
// its identity, and the status transitions every dispatch strategy must respect.
// It has no dependencies on providers, storage or transport.
package domain
