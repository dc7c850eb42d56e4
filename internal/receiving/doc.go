// Package receiving is the only place that moves boxes, volumes and manifests
// between receiving states.
//
// Every operation runs as one store.Write transaction: boxes are marked, the
// volume's received counter is recounted from its box rows, the volume status
// is derived from that count, and the manifest status is recomputed from the
// sums over all of its volumes. The audit entry is written in the same
// transaction. After commit the changed rows are published to the mirror and
// counted in metrics; neither can fail the operation.
//
// Receiving a box twice is not an error: the second call reports
// AlreadyReceived and changes nothing.
package receiving
