// Package events carries per-item outcome notifications from the result
// writer to interested parties (the outcome ledger, progress reporting)
// without the writer knowing who listens.
//
// The primary components are:
// - OutcomeEvent: the terminal outcome of one work item in one run
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
