// Package store persists manifests, volumes, boxes, and the audit log in
// SQLite and exposes the retry-safe persistence layer the rest of the system
// builds on.
//
// Every mutation runs through Store.Write: the process-wide write mutex is
// taken, then one immediate transaction is attempted under the configured
// RetryPolicy. The callback receives a Tx whose statements all share the held
// connection, so volume counters can never diverge from the box rows that
// produced them. Callbacks may run more than once when the database reports
// contention and must not keep side effects outside the transaction.
//
// Reads skip the mutex and retry on contention only. Schema changes bump
// schemaVersion; an older database is rejected with ErrSchemaMismatch.
package store
