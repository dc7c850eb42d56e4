// Package metrics exposes Prometheus collectors for the store, the receiving
// service, the extractor, and the mirror worker.
//
// Collectors live on a dedicated registry so tests can create as many
// instances as they need. The watch command serves Handler on metrics.listen.
package metrics
