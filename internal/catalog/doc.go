// Package catalog enumerates the work items of a run. It reads input records
// from a CSV file, a plain title list or a directory of generated artifacts,
// assigns each record its stable identity and leaves out every item whose
// artifact already exists, which is what makes re-running a pipeline resume
// where it stopped.
package catalog
