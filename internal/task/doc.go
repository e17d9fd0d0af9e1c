// Package task runs work items through a bounded pool of workers. Workers
// drain one shared queue, call a synchronous processor with a bounded number
// of retries and hand every outcome to a writer, which owns the run counters.
// It is the dispatch strategy for jobs that have no batch endpoint, and for
// chat jobs when batching is turned off.
package task
