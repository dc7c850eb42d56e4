package receiving

import "manifestrecon/internal/store"

// VolumeStatusFor derives a volume status from its counters. Extra volumes
// keep their tag regardless of progress.
func VolumeStatusFor(received, expected int, extra bool) store.VolumeStatus {
	switch {
	case extra:
		return store.VolumeExtra
	case received <= 0:
		return store.VolumeNotReceived
	case received >= expected:
		return store.VolumeComplete
	default:
		return store.VolumePartial
	}
}

// ManifestStatusFor derives a manifest status from the sums over its volumes.
func ManifestStatusFor(t store.Totals) store.ManifestStatus {
	switch {
	case t.Received <= 0:
		return store.ManifestNotReceived
	case t.Received == t.Expected:
		return store.ManifestFullyReceived
	default:
		return store.ManifestPartiallyReceived
	}
}
