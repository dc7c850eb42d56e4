package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"manifestrecon/internal/store"
)

var _ store.Observer = (*Registry)(nil)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegistryCounts(t *testing.T) {
	r := New()
	r.StoreRetry()
	r.StoreRetry()
	r.StoreContention()
	r.StoreWrite(20 * time.Millisecond)
	r.BoxesReceived(3)
	r.BoxesReceived(0)
	r.VolumesImported(4)
	r.ExtractionWarnings(1)
	r.MirrorTask(MirrorOK)
	r.MirrorTask(MirrorDropped)
	r.MirrorTask(MirrorDropped)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"retries", value(t, r.storeRetries), 2},
		{"contention", value(t, r.storeContention), 1},
		{"boxes", value(t, r.boxesReceived), 3},
		{"volumes", value(t, r.volumesImported), 4},
		{"warnings", value(t, r.extractionWarnings), 1},
		{"mirror ok", value(t, r.mirrorTasks.WithLabelValues(MirrorOK)), 1},
		{"mirror dropped", value(t, r.mirrorTasks.WithLabelValues(MirrorDropped)), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.StoreRetry()
	r.StoreContention()
	r.StoreWrite(time.Second)
	r.BoxesReceived(1)
	r.MirrorTask(MirrorFailed)
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.BoxesReceived(2)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "manifestrecon_boxes_received_total 2") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
