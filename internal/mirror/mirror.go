package mirror

import (
	"fmt"
	"strings"
	"time"

	"manifestrecon/internal/store"
)

// Row kinds.
const (
	KindManifest = "manifest"
	KindVolume   = "volume"
)

// Row is one upsert against the mirror. Manifest rows carry the header status;
// volume rows carry one line of the reconciliation sheet keyed by volume number.
type Row struct {
	Kind           string    `json:"kind"`
	Manifest       string    `json:"manifest"`
	ManifestStatus string    `json:"manifest_status,omitempty"`
	Volume         string    `json:"volume,omitempty"`
	Sender         string    `json:"sender,omitempty"`
	Recipient      string    `json:"recipient,omitempty"`
	Quantity       string    `json:"quantity,omitempty"`
	Status         string    `json:"status,omitempty"`
	ReceivedAt     string    `json:"received_at,omitempty"`
	ReceivedBy     string    `json:"received_by,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key identifies the row on the remote side.
func (r Row) Key() string {
	if r.Kind == KindVolume {
		return r.Manifest + "/" + r.Volume
	}
	return r.Manifest
}

// Publisher accepts rows for asynchronous delivery.
type Publisher interface {
	Publish(Row)
}

// Noop discards every row. It is used when the mirror is disabled.
type Noop struct{}

func (Noop) Publish(Row) {}

// ManifestRow builds the header row for m.
func ManifestRow(m *store.Manifest, now time.Time) Row {
	return Row{
		Kind:           KindManifest,
		Manifest:       m.Number,
		ManifestStatus: string(m.Status),
		UpdatedAt:      now.UTC(),
	}
}

// VolumeRow builds the sheet line for v on manifest number.
func VolumeRow(number string, v *store.Volume, operator string, now time.Time) Row {
	row := Row{
		Kind:       KindVolume,
		Manifest:   number,
		Volume:     v.Number,
		Sender:     v.Sender,
		Recipient:  v.Recipient,
		Quantity:   fmt.Sprintf("%d / %d", v.Received, v.Expected),
		Status:     string(v.Status),
		ReceivedAt: "-",
		ReceivedBy: "-",
		UpdatedAt:  now.UTC(),
	}
	if v.LastReceivedAt != nil {
		row.ReceivedAt = v.LastReceivedAt.Local().Format("02/01/06 15:04")
	}
	if operator = strings.TrimSpace(operator); operator != "" && v.Received > 0 {
		row.ReceivedBy = operator
	}
	return row
}
