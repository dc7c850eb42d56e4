package receiving_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"manifestrecon/internal/extract"
	"manifestrecon/internal/mirror"
	"manifestrecon/internal/receiving"
	"manifestrecon/internal/store"
	"manifestrecon/internal/testsupport"
)

type capturePublisher struct {
	mu   sync.Mutex
	rows []mirror.Row
}

func (c *capturePublisher) Publish(row mirror.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
}

func (c *capturePublisher) kinds() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]int{}
	for _, r := range c.rows {
		out[r.Kind]++
	}
	return out
}

type countingRecorder struct {
	mu       sync.Mutex
	boxes    int
	volumes  int
	warnings int
}

func (r *countingRecorder) BoxesReceived(n int)      { r.mu.Lock(); r.boxes += n; r.mu.Unlock() }
func (r *countingRecorder) VolumesImported(n int)    { r.mu.Lock(); r.volumes += n; r.mu.Unlock() }
func (r *countingRecorder) ExtractionWarnings(n int) { r.mu.Lock(); r.warnings += n; r.mu.Unlock() }

type fixture struct {
	store     *store.Store
	service   *receiving.Service
	publisher *capturePublisher
	recorder  *countingRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	pub := &capturePublisher{}
	rec := &countingRecorder{}
	svc := receiving.NewService(st,
		receiving.WithPublisher(pub),
		receiving.WithRecorder(rec),
		receiving.WithDefaultOperator(cfg.Receiving.DefaultOperator))
	return fixture{store: st, service: svc, publisher: pub, recorder: rec}
}

func intPtr(n int) *int { return &n }

func TestEndToEndReceivingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.service.RegisterManifest(ctx, store.NewManifest{Number: "M1"}, "Sgt Lima")
	if err != nil {
		t.Fatalf("RegisterManifest: %v", err)
	}
	vol, err := f.service.RegisterVolume(ctx, store.NewVolume{
		ManifestID: m.ID, Sender: "PAMASP", Recipient: "PAMALS", Number: "251381004370/0001", Expected: 4,
	}, "Sgt Lima")
	if err != nil {
		t.Fatalf("RegisterVolume: %v", err)
	}

	for _, n := range []int{1, 2} {
		if _, err := f.service.ReceiveBox(ctx, vol.ID, n, "Sgt Lima"); err != nil {
			t.Fatalf("ReceiveBox(%d): %v", n, err)
		}
	}
	got, err := f.store.GetVolume(ctx, vol.ID)
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got.Status != store.VolumePartial || got.Received != 2 {
		t.Fatalf("after two boxes: status=%s received=%d", got.Status, got.Received)
	}
	if got.FirstReceivedAt == nil || got.LastReceivedAt == nil {
		t.Fatalf("receive timestamps not set: %#v", got)
	}

	receipt, err := f.service.ReceiveVolume(ctx, vol.ID, intPtr(2), "Sgt Lima")
	if err != nil {
		t.Fatalf("ReceiveVolume: %v", err)
	}
	if len(receipt.Received) != 2 || receipt.Received[0] != 3 || receipt.Received[1] != 4 {
		t.Fatalf("expected boxes 3 and 4, got %v", receipt.Received)
	}
	if receipt.Volume.Status != store.VolumeComplete || receipt.Volume.Received != 4 {
		t.Fatalf("after volume receive: %#v", receipt.Volume)
	}

	finish, err := f.service.FinishReconciliation(ctx, m.ID, "Sgt Lima")
	if err != nil {
		t.Fatalf("FinishReconciliation: %v", err)
	}
	if finish.Manifest.Status != store.ManifestFullyReceived || !finish.Complete {
		t.Fatalf("expected fully received, got %#v", finish)
	}
	if finish.Totals != (store.Totals{Expected: 4, Received: 4}) {
		t.Fatalf("unexpected totals: %#v", finish.Totals)
	}
	if finish.Manifest.WindowEnd == nil {
		t.Fatal("window end not recorded")
	}
	if f.recorder.boxes != 4 {
		t.Fatalf("expected 4 boxes counted, got %d", f.recorder.boxes)
	}
}

func TestReceiveBoxIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	volumeID := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 2)

	first, err := f.service.ReceiveBox(ctx, volumeID, 1, "op")
	if err != nil {
		t.Fatalf("first ReceiveBox: %v", err)
	}
	if first.AlreadyReceived || first.Box.Status != store.BoxReceived || first.Box.ReceivedAt == nil {
		t.Fatalf("unexpected first result: %#v", first)
	}
	logsBefore, err := f.store.ListLogs(ctx, store.Ref(manifestID), 0)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}

	second, err := f.service.ReceiveBox(ctx, volumeID, 1, "someone else")
	if err != nil {
		t.Fatalf("second ReceiveBox: %v", err)
	}
	if !second.AlreadyReceived {
		t.Fatal("second call should report already received")
	}
	if second.Volume.Received != 1 || second.Volume.Status != store.VolumePartial {
		t.Fatalf("counters changed on repeat: %#v", second.Volume)
	}
	if second.Box.Operator != "op" {
		t.Fatalf("repeat must not overwrite the receiving operator, got %q", second.Box.Operator)
	}
	logsAfter, err := f.store.ListLogs(ctx, store.Ref(manifestID), 0)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logsAfter) != len(logsBefore) {
		t.Fatalf("repeat wrote a log entry: %d -> %d", len(logsBefore), len(logsAfter))
	}
}

func TestReceiveBoxNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	volumeID := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 2)

	if _, err := f.service.ReceiveBox(ctx, volumeID+100, 1, "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown volume: expected ErrNotFound, got %v", err)
	}
	if _, err := f.service.ReceiveBox(ctx, volumeID, 3, "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown box: expected ErrNotFound, got %v", err)
	}
	if _, err := f.service.ReceiveVolume(ctx, volumeID+100, nil, "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown volume receive: expected ErrNotFound, got %v", err)
	}
	if _, err := f.service.FinishReconciliation(ctx, manifestID+100, "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown manifest finish: expected ErrNotFound, got %v", err)
	}
	if _, err := f.service.StartReconciliation(ctx, manifestID+100, "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown manifest start: expected ErrNotFound, got %v", err)
	}
}

func TestReceiveVolumeBoundaries(t *testing.T) {
	tests := []struct {
		name         string
		preReceived  []int
		count        *int
		wantReceived []int
		wantTotal    int
		wantStatus   store.VolumeStatus
	}{
		{"zero is a no-op", nil, intPtr(0), nil, 0, store.VolumeNotReceived},
		{"count above outstanding", []int{2}, intPtr(10), []int{1, 3, 4}, 4, store.VolumeComplete},
		{"nil receives all outstanding", []int{1, 4}, nil, []int{2, 3}, 4, store.VolumeComplete},
		{"lowest numbers first", []int{1}, intPtr(2), []int{2, 3}, 3, store.VolumePartial},
		{"nothing outstanding", []int{1, 2, 3, 4}, nil, []int{}, 4, store.VolumeComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
			volumeID := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 4)
			for _, n := range tt.preReceived {
				if _, err := f.service.ReceiveBox(ctx, volumeID, n, "op"); err != nil {
					t.Fatalf("ReceiveBox(%d): %v", n, err)
				}
			}

			receipt, err := f.service.ReceiveVolume(ctx, volumeID, tt.count, "op")
			if err != nil {
				t.Fatalf("ReceiveVolume: %v", err)
			}
			if len(receipt.Received) != len(tt.wantReceived) {
				t.Fatalf("received %v, want %v", receipt.Received, tt.wantReceived)
			}
			for i := range tt.wantReceived {
				if receipt.Received[i] != tt.wantReceived[i] {
					t.Fatalf("received %v, want %v", receipt.Received, tt.wantReceived)
				}
			}
			if receipt.Volume.Received != tt.wantTotal || receipt.Volume.Status != tt.wantStatus {
				t.Fatalf("volume = %d %s, want %d %s", receipt.Volume.Received, receipt.Volume.Status, tt.wantTotal, tt.wantStatus)
			}
			boxes, err := f.store.ListBoxes(ctx, volumeID)
			if err != nil {
				t.Fatalf("ListBoxes: %v", err)
			}
			receivedRows := 0
			for _, b := range boxes {
				if b.Status == store.BoxReceived {
					receivedRows++
				}
			}
			if receivedRows != tt.wantTotal {
				t.Fatalf("box rows say %d received, counter says %d", receivedRows, tt.wantTotal)
			}
		})
	}
}

func TestReceiveVolumeRejectsNegativeCount(t *testing.T) {
	f := newFixture(t)
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	volumeID := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 1)
	if _, err := f.service.ReceiveVolume(context.Background(), volumeID, intPtr(-1), "op"); !errors.Is(err, receiving.ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount, got %v", err)
	}
}

func TestReceiveManifestReceivesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	a := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 3)
	testsupport.MustCreateVolume(t, f.store, manifestID, "CABW", "B/1", 2)
	testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "C/1", 1)
	if _, err := f.service.ReceiveBox(ctx, a, 2, "op"); err != nil {
		t.Fatalf("ReceiveBox: %v", err)
	}

	receipt, err := f.service.ReceiveManifest(ctx, manifestID, "op")
	if err != nil {
		t.Fatalf("ReceiveManifest: %v", err)
	}
	if receipt.Boxes != 5 || len(receipt.Volumes) != 3 {
		t.Fatalf("expected 5 boxes over 3 volumes, got %d over %d", receipt.Boxes, len(receipt.Volumes))
	}
	if receipt.Manifest.Status != store.ManifestFullyReceived {
		t.Fatalf("expected fully received, got %s", receipt.Manifest.Status)
	}

	again, err := f.service.ReceiveManifest(ctx, manifestID, "op")
	if err != nil {
		t.Fatalf("second ReceiveManifest: %v", err)
	}
	if again.Boxes != 0 {
		t.Fatalf("second call should receive nothing, got %d", again.Boxes)
	}
}

func TestManifestStatusFollowsEveryBox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	a := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 1)
	b := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "B/1", 1)

	res, err := f.service.ReceiveBox(ctx, a, 1, "op")
	if err != nil {
		t.Fatalf("ReceiveBox: %v", err)
	}
	if res.ManifestStatus != store.ManifestPartiallyReceived {
		t.Fatalf("expected partially received, got %s", res.ManifestStatus)
	}
	res, err = f.service.ReceiveBox(ctx, b, 1, "op")
	if err != nil {
		t.Fatalf("ReceiveBox: %v", err)
	}
	if res.ManifestStatus != store.ManifestFullyReceived {
		t.Fatalf("expected fully received, got %s", res.ManifestStatus)
	}
	if f.publisher.kinds()[mirror.KindManifest] != 2 {
		t.Fatalf("expected a manifest row per status change, got %v", f.publisher.kinds())
	}
}

func TestRegisterVolumeReopensFullyReceivedManifest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	a := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 1)
	if _, err := f.service.ReceiveBox(ctx, a, 1, "op"); err != nil {
		t.Fatalf("ReceiveBox: %v", err)
	}

	if _, err := f.service.RegisterVolume(ctx, store.NewVolume{ManifestID: manifestID, Sender: "CABW", Number: "B/1", Expected: 2}, "op"); err != nil {
		t.Fatalf("RegisterVolume: %v", err)
	}
	m, err := f.store.GetManifest(ctx, manifestID)
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Status != store.ManifestPartiallyReceived {
		t.Fatalf("expected partially received after adding a volume, got %s", m.Status)
	}
}

func TestRegisterExtraVolumeReceivesItsBoxes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")

	vol, err := f.service.RegisterExtraVolume(ctx, store.NewVolume{
		ManifestID: manifestID, Sender: "cabw", Number: "251381008888/0001", Expected: 2,
	}, "Sgt Lima")
	if err != nil {
		t.Fatalf("RegisterExtraVolume: %v", err)
	}
	if vol.Status != store.VolumeExtra || vol.Received != 2 || !vol.Extra() {
		t.Fatalf("unexpected extra volume: %#v", vol)
	}
	m, err := f.store.GetManifest(ctx, manifestID)
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Status != store.ManifestFullyReceived {
		t.Fatalf("expected fully received, got %s", m.Status)
	}
	logs, err := f.store.ListLogs(ctx, store.Ref(manifestID), 1)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != store.ActionExtraVolume || logs[0].Operator != "Sgt Lima" {
		t.Fatalf("unexpected log: %#v", logs)
	}

	if _, err := f.service.RegisterExtraVolume(ctx, store.NewVolume{
		ManifestID: manifestID, Sender: "cabw", Number: "251381008888/0001", Expected: 1,
	}, "Sgt Lima"); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestImportSampleDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ex := extract.New(extract.Options{DestinationCode: "PAMALS", DestinationComponents: []string{"PAMA", "LS"}})
	res := ex.Extract(testsupport.SampleManifestText)

	out, err := f.service.Import(ctx, res, "manifesto.pdf", "Sgt Lima")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Manifest.Number != "202531000635" || out.Manifest.Destination != "PCAN-LS" || out.Manifest.SourceRef != "manifesto.pdf" {
		t.Fatalf("unexpected manifest: %#v", out.Manifest)
	}
	if out.Manifest.Date == nil || out.Manifest.Date.Format(store.DateLayout) != "2025-11-24" {
		t.Fatalf("unexpected date: %v", out.Manifest.Date)
	}
	if len(out.Volumes) != 4 || out.Boxes != 9 {
		t.Fatalf("expected 4 volumes and 9 boxes, got %d and %d", len(out.Volumes), out.Boxes)
	}
	stats, err := f.store.GetStatistics(ctx, out.Manifest.ID)
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.ExpectedBoxes != 9 || stats.Volumes != 4 {
		t.Fatalf("unexpected stored totals: %#v", stats)
	}
	if f.recorder.volumes != 4 {
		t.Fatalf("expected 4 imported volumes counted, got %d", f.recorder.volumes)
	}

	if _, err := f.service.Import(ctx, res, "again.pdf", "Sgt Lima"); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on re-import, got %v", err)
	}
	list, err := f.store.ListManifests(ctx, store.ManifestFilter{})
	if err != nil {
		t.Fatalf("ListManifests: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("failed import must leave nothing behind, got %d manifests", len(list))
	}
}

func TestImportSkipsNonPositiveCountsAndRejectsMissingNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ex := extract.New(extract.Options{DestinationCode: "PAMALS"})

	res := ex.Extract("Manifesto: 202531000999\nPAMASP PAMALS 251381005555/0001 2,00 0,020 0 CAIXA 04\nPAMASP PAMALS 251381005556/0001 2,00 0,020 2 CAIXA 04")
	out, err := f.service.Import(ctx, res, "", "op")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(out.Volumes) != 1 || len(out.Skipped) != 1 || out.Skipped[0] != "251381005555/0001" {
		t.Fatalf("unexpected import result: %#v", out)
	}
	if len(out.Warnings) == 0 {
		t.Fatal("extraction warnings should be carried into the result")
	}

	if _, err := f.service.Import(ctx, ex.Extract("PAMASP PAMALS 251381005555/0001 2,00 0,020 1 CAIXA 04"), "", "op"); !errors.Is(err, receiving.ErrMissingManifestNumber) {
		t.Fatalf("expected ErrMissingManifestNumber, got %v", err)
	}
}

func TestReconciliationWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 2)

	m, err := f.service.StartReconciliation(ctx, manifestID, "Sgt Lima")
	if err != nil {
		t.Fatalf("StartReconciliation: %v", err)
	}
	if m.WindowStart == nil || m.WindowEnd != nil || m.Operator != "Sgt Lima" {
		t.Fatalf("unexpected window after start: %#v", m)
	}
	if m.Status != store.ManifestNotReceived {
		t.Fatalf("start must not change status, got %s", m.Status)
	}

	finish, err := f.service.FinishReconciliation(ctx, manifestID, "")
	if err != nil {
		t.Fatalf("FinishReconciliation: %v", err)
	}
	if finish.Complete || finish.Manifest.Status != store.ManifestNotReceived {
		t.Fatalf("empty manifest cannot be complete: %#v", finish)
	}
	if finish.Manifest.WindowEnd == nil {
		t.Fatal("window end not recorded")
	}
	logs, err := f.store.ListLogs(ctx, store.Ref(manifestID), 1)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if logs[0].Action != store.ActionReconcileFinished || logs[0].Operator != "Sistema" {
		t.Fatalf("expected finish log by default operator, got %#v", logs[0])
	}

	reopened, err := f.service.StartReconciliation(ctx, manifestID, "Cb Souza")
	if err != nil {
		t.Fatalf("StartReconciliation again: %v", err)
	}
	if reopened.WindowEnd != nil || reopened.Operator != "Cb Souza" {
		t.Fatalf("reopening should clear the window end: %#v", reopened)
	}
}

func TestConcurrentReceivesKeepCountersConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	const boxes = 16
	volumeID := testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", boxes)

	var wg sync.WaitGroup
	errs := make(chan error, boxes*2)
	for n := 1; n <= boxes; n++ {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := f.service.ReceiveBox(ctx, volumeID, n, "op")
				errs <- err
			}(n)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ReceiveBox: %v", err)
		}
	}

	vol, err := f.store.GetVolume(ctx, volumeID)
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if vol.Received != boxes || vol.Status != store.VolumeComplete {
		t.Fatalf("expected %d received and COMPLETE, got %d %s", boxes, vol.Received, vol.Status)
	}
	m, err := f.store.GetManifest(ctx, manifestID)
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Status != store.ManifestFullyReceived {
		t.Fatalf("expected fully received, got %s", m.Status)
	}
	if f.recorder.boxes != boxes {
		t.Fatalf("each box must be counted once, got %d", f.recorder.boxes)
	}
}

func TestDeleteManifestCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manifestID := testsupport.MustCreateManifest(t, f.store, "M1")
	testsupport.MustCreateVolume(t, f.store, manifestID, "PAMASP", "A/1", 2)

	if err := f.service.DeleteManifest(ctx, manifestID, "admin"); err != nil {
		t.Fatalf("DeleteManifest: %v", err)
	}
	if _, err := f.store.GetManifest(ctx, manifestID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
