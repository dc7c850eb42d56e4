// Package daemon runs the long-lived `watch` process.
//
// It ties the inbox watcher, the mirror worker and the metrics endpoint into
// one lifecycle with flock-based locking so only one instance imports from the
// inbox at a time. Receiving itself stays in the receiving package; the daemon
// only starts, stops and reports on the background services.
package daemon
