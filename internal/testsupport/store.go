package testsupport

import (
	"context"
	"testing"

	"manifestrecon/internal/config"
	"manifestrecon/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustCreateManifest registers a manifest with the given number.
func MustCreateManifest(t testing.TB, st *store.Store, number string) int64 {
	t.Helper()

	id, err := st.CreateManifest(context.Background(), store.NewManifest{
		Number:      number,
		Origin:      "PCAN-SP",
		Destination: "PCAN-LS",
	}, "tester")
	if err != nil {
		t.Fatalf("CreateManifest(%s): %v", number, err)
	}
	return id
}

// MustCreateVolume registers a volume with expected boxes.
func MustCreateVolume(t testing.TB, st *store.Store, manifestID int64, sender, number string, expected int) int64 {
	t.Helper()

	id, err := st.CreateVolume(context.Background(), store.NewVolume{
		ManifestID: manifestID,
		Sender:     sender,
		Recipient:  "PAMALS",
		Number:     number,
		Expected:   expected,
	}, "tester")
	if err != nil {
		t.Fatalf("CreateVolume(%s): %v", number, err)
	}
	return id
}
