// Package store defines the persistence contracts of the optional run
// ledger: the records kept about batch jobs and item outcomes, and the
// errors store implementations report.
package store
