// Package mirror pushes manifest and volume rows to an external tabular HTTP
// service so people away from the terminal can follow receiving progress.
//
// Publishing never blocks receiving. Rows go into a bounded queue drained by a
// single Worker goroutine that spaces requests by mirror.task_delay_ms and
// retries rate-limit and server errors with exponential backoff plus jitter.
// A full queue drops the row and counts it; failures are logged, never returned
// to the caller that published them.
package mirror
