package receiving

import (
	"testing"

	"manifestrecon/internal/store"
)

func TestVolumeStatusFor(t *testing.T) {
	tests := []struct {
		received, expected int
		extra              bool
		want               store.VolumeStatus
	}{
		{0, 4, false, store.VolumeNotReceived},
		{1, 4, false, store.VolumePartial},
		{3, 4, false, store.VolumePartial},
		{4, 4, false, store.VolumeComplete},
		{1, 1, false, store.VolumeComplete},
		{0, 2, true, store.VolumeExtra},
		{2, 2, true, store.VolumeExtra},
	}
	for _, tt := range tests {
		if got := VolumeStatusFor(tt.received, tt.expected, tt.extra); got != tt.want {
			t.Fatalf("VolumeStatusFor(%d, %d, %v) = %s, want %s", tt.received, tt.expected, tt.extra, got, tt.want)
		}
	}
}

func TestManifestStatusFor(t *testing.T) {
	tests := []struct {
		totals store.Totals
		want   store.ManifestStatus
	}{
		{store.Totals{Expected: 0, Received: 0}, store.ManifestNotReceived},
		{store.Totals{Expected: 9, Received: 0}, store.ManifestNotReceived},
		{store.Totals{Expected: 9, Received: 5}, store.ManifestPartiallyReceived},
		{store.Totals{Expected: 9, Received: 9}, store.ManifestFullyReceived},
	}
	for _, tt := range tests {
		if got := ManifestStatusFor(tt.totals); got != tt.want {
			t.Fatalf("ManifestStatusFor(%+v) = %s, want %s", tt.totals, got, tt.want)
		}
	}
}
