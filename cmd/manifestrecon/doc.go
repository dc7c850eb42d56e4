// Command manifestrecon registers air-cargo manifests, receives their boxes
// and reports on the reconciliation.
//
// Every subcommand opens the SQLite store directly, so several terminals can
// receive against the same manifest at once; `watch` additionally runs the
// inbox importer, the sheet mirror and the metrics endpoint.
package main
