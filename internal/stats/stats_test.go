package stats

import (
	"testing"
	"time"

	"manifestrecon/internal/store"
)

func TestSummarize(t *testing.T) {
	start := time.Date(2025, 11, 24, 8, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Minute)
	m := store.Manifest{ID: 1, Number: "M1", Status: store.ManifestPartiallyReceived, WindowStart: &start, WindowEnd: &end}
	volumes := []store.Volume{
		{Number: "A/1", Sender: "PAMASP", Expected: 4, Received: 4, Status: store.VolumeComplete},
		{Number: "B/1", Sender: "CABW", Expected: 3, Received: 1, Status: store.VolumePartial},
		{Number: "C/1", Sender: "PAMASP", Expected: 2, Received: 0, Status: store.VolumeNotReceived},
	}
	st := store.Statistics{
		ManifestID: 1, Volumes: 3, VolumesNotReceived: 1, VolumesPartial: 1, VolumesComplete: 1,
		ExpectedBoxes: 9, ReceivedBoxes: 5,
	}

	s := Summarize(m, st, volumes)

	if s.Complete {
		t.Fatal("partially received manifest reported complete")
	}
	if s.Window != 95*time.Minute {
		t.Fatalf("window = %v", s.Window)
	}
	wantShares := []StatusShare{
		{store.VolumeNotReceived, 1, 33.3},
		{store.VolumePartial, 1, 33.3},
		{store.VolumeComplete, 1, 33.3},
		{store.VolumeExtra, 0, 0},
	}
	if len(s.Statuses) != len(wantShares) {
		t.Fatalf("statuses = %#v", s.Statuses)
	}
	for i, want := range wantShares {
		if s.Statuses[i] != want {
			t.Fatalf("status %d = %#v, want %#v", i, s.Statuses[i], want)
		}
	}
	if len(s.Senders) != 2 || s.Senders[0].Sender != "CABW" || s.Senders[1].Sender != "PAMASP" {
		t.Fatalf("senders not sorted: %#v", s.Senders)
	}
	if got := s.Senders[1]; got.Volumes != 2 || got.Expected != 6 || got.Received != 4 || got.Outstanding() != 2 {
		t.Fatalf("PAMASP rollup = %#v", got)
	}
	if len(s.Outstanding) != 2 || s.OutstandingBoxes() != 4 {
		t.Fatalf("outstanding = %d volumes, %d boxes", len(s.Outstanding), s.OutstandingBoxes())
	}
}

func TestSummarizeEmptyManifest(t *testing.T) {
	start := time.Now()
	s := Summarize(store.Manifest{Status: store.ManifestNotReceived, WindowStart: &start}, store.Statistics{}, nil)
	for _, share := range s.Statuses {
		if share.Percent != 0 || share.Count != 0 {
			t.Fatalf("empty manifest has share %#v", share)
		}
	}
	if s.Window != 0 {
		t.Fatalf("open window should have no duration, got %v", s.Window)
	}
	if len(s.Senders) != 0 || len(s.Outstanding) != 0 || s.Complete {
		t.Fatalf("unexpected summary: %#v", s)
	}
}

func TestSummarizeExtraVolumeCountsAsComplete(t *testing.T) {
	volumes := []store.Volume{
		{Number: "X/1", Sender: "CABE", Expected: 2, Received: 2, Status: store.VolumeExtra},
	}
	st := store.Statistics{Volumes: 1, VolumesExtra: 1, ExpectedBoxes: 2, ReceivedBoxes: 2, PercentReceived: 100}
	s := Summarize(store.Manifest{Status: store.ManifestFullyReceived}, st, volumes)
	if !s.Complete || len(s.Outstanding) != 0 {
		t.Fatalf("unexpected summary: %#v", s)
	}
	if s.Statuses[3].Percent != 100 {
		t.Fatalf("extra share = %#v", s.Statuses[3])
	}
}
