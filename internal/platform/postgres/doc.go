// Package postgres implements the run ledger on PostgreSQL: the batch jobs a
// run submitted and the terminal outcome of every item.
//
// The schema ships with the binary as goose migrations embedded from the
// migrations directory and is applied by Migrate. Connections go through the
// pgx database/sql driver.
package postgres
