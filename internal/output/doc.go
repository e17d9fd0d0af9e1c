// Package output persists generated artifacts and keeps the run's accounting.
//
// Writer lands each artifact atomically at its final path (temporary file in
// the same directory, then rename), so an interrupted write never leaves a file
// a later run would mistake for a finished one. Each item is written at most
// once per run. Counters and the bounded failure list are safe for concurrent
// use by worker-pool goroutines.
package output
