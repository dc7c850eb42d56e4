package store

import (
	"strings"
	"time"
)

// ManifestStatus is the receiving state of a whole manifest.
type ManifestStatus string

const (
	ManifestNotReceived       ManifestStatus = "NOT_RECEIVED"
	ManifestPartiallyReceived ManifestStatus = "PARTIALLY_RECEIVED"
	ManifestFullyReceived     ManifestStatus = "FULLY_RECEIVED"
)

// ParseManifestStatus accepts the canonical names case-insensitively.
func ParseManifestStatus(value string) (ManifestStatus, bool) {
	status := ManifestStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case ManifestNotReceived, ManifestPartiallyReceived, ManifestFullyReceived:
		return status, true
	}
	return "", false
}

// VolumeStatus is the receiving state of one volume line.
type VolumeStatus string

const (
	VolumeNotReceived VolumeStatus = "NOT_RECEIVED"
	VolumePartial     VolumeStatus = "PARTIAL"
	VolumeComplete    VolumeStatus = "COMPLETE"
	// VolumeExtra tags operator-inserted volumes absent from the source document.
	VolumeExtra VolumeStatus = "EXTRA_VOLUME"
)

// BoxStatus is the receiving state of one physical box.
type BoxStatus string

const (
	BoxNotReceived BoxStatus = "NOT_RECEIVED"
	BoxReceived    BoxStatus = "RECEIVED"
)

// Audit log actions.
const (
	ActionManifestCreated   = "MANIFEST_CREATED"
	ActionVolumeCreated     = "VOLUME_CREATED"
	ActionExtraVolume       = "EXTRA_VOLUME"
	ActionBoxReceived       = "BOX_RECEIVED"
	ActionVolumeReceived    = "VOLUME_RECEIVED"
	ActionManifestReceived  = "MANIFEST_RECEIVED"
	ActionReconcileStarted  = "RECONCILE_STARTED"
	ActionReconcileFinished = "RECONCILE_FINISHED"
	ActionManifestDeleted   = "MANIFEST_DELETED"
	ActionManifestImported  = "MANIFEST_IMPORTED"
	ActionNote              = "NOTE"
)

const (
	// DateLayout is the storage and display format of manifest dates.
	DateLayout = "2006-01-02"

	defaultLogOperator = "Sistema"
)

// Manifest is one shipment batch between an origin and destination terminal.
type Manifest struct {
	ID           int64
	Number       string
	Date         *time.Time
	Origin       string
	Destination  string
	Mission      string
	Aircraft     string
	SourceRef    string
	Status       ManifestStatus
	RegisteredAt time.Time
	WindowStart  *time.Time
	WindowEnd    *time.Time
	Operator     string
}

// Volume is one declared volume number on a manifest.
type Volume struct {
	ID              int64
	ManifestID      int64
	Sender          string
	Recipient       string
	Number          string
	Expected        int
	Received        int
	Weight          *float64
	Cubage          *float64
	Priority        string
	MaterialType    string
	Packaging       string
	Status          VolumeStatus
	FirstReceivedAt *time.Time
	LastReceivedAt  *time.Time
}

// Extra reports whether the volume was inserted by an operator.
func (v Volume) Extra() bool { return v.Status == VolumeExtra }

// Outstanding returns how many boxes are still expected.
func (v Volume) Outstanding() int {
	if v.Received >= v.Expected {
		return 0
	}
	return v.Expected - v.Received
}

// Box is one physical unit within a volume.
type Box struct {
	ID         int64
	VolumeID   int64
	Number     int
	Status     BoxStatus
	ReceivedAt *time.Time
	Operator   string
}

// LogEntry is one append-only audit record.
type LogEntry struct {
	ID         int64
	ManifestID *int64
	Action     string
	Detail     string
	Operator   string
	Timestamp  time.Time
}

// ManifestWithCounts pairs a manifest with its aggregate volume and box counts.
type ManifestWithCounts struct {
	Manifest
	VolumeCount   int
	ExpectedBoxes int
	ReceivedBoxes int
}

// Totals sums expected and received boxes across a manifest's volumes.
type Totals struct {
	Expected int
	Received int
}

// Statistics is the aggregate view of one manifest.
type Statistics struct {
	ManifestID         int64
	Volumes            int
	VolumesNotReceived int
	VolumesPartial     int
	VolumesComplete    int
	VolumesExtra       int
	ExpectedBoxes      int
	ReceivedBoxes      int
	TotalWeight        float64
	TotalCubage        float64
	PercentReceived    float64
}

// NewManifest carries the fields needed to register a manifest.
type NewManifest struct {
	Number      string
	Date        *time.Time
	Origin      string
	Destination string
	Mission     string
	Aircraft    string
	SourceRef   string
}

// NewVolume carries the fields needed to register a volume and its boxes.
type NewVolume struct {
	ManifestID   int64
	Sender       string
	Recipient    string
	Number       string
	Expected     int
	Weight       *float64
	Cubage       *float64
	Priority     string
	MaterialType string
	Packaging    string
	Extra        bool
}

// ManifestFilter narrows ListManifests. Zero values match everything.
type ManifestFilter struct {
	Status   ManifestStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// DatabaseHealth describes the state of the backing database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	JournalMode      string
	MissingTables    []string
	IntegrityCheck   bool
	Manifests        int
	Volumes          int
	Boxes            int
	LogEntries       int
	Error            string
}
