// Package testdb provides the database helpers of the ledger integration
// tests.
//
// Each test runs in its own transaction, which is rolled back when the test
// completes, so tests never see each other's rows and need no cleanup:
//
//	func TestJobStore(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewJobStore(tx, nil)
//	        // ...
//	    })
//	}
//
// Open skips the test when no database URL is set, except in CI where the
// missing database fails it.
package testdb
