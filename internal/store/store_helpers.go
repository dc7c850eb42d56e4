package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const manifestColumns = "m.id, m.number, m.date, m.origin, m.destination, m.mission, m.aircraft, m.source_ref, m.status, m.registered_at, m.window_start, m.window_end, m.operator"

const volumeColumns = "id, manifest_id, sender, recipient, volume_number, expected, received, weight, cubage, priority, material_type, packaging, status, first_received_at, last_received_at"

const boxColumns = "id, volume_id, box_number, status, received_at, operator"

type manifestRow struct {
	ID           int64          `db:"id"`
	Number       string         `db:"number"`
	Date         sql.NullString `db:"date"`
	Origin       sql.NullString `db:"origin"`
	Destination  sql.NullString `db:"destination"`
	Mission      sql.NullString `db:"mission"`
	Aircraft     sql.NullString `db:"aircraft"`
	SourceRef    sql.NullString `db:"source_ref"`
	Status       string         `db:"status"`
	RegisteredAt string         `db:"registered_at"`
	WindowStart  sql.NullString `db:"window_start"`
	WindowEnd    sql.NullString `db:"window_end"`
	Operator     sql.NullString `db:"operator"`
}

func (r manifestRow) model() Manifest {
	m := Manifest{
		ID:          r.ID,
		Number:      r.Number,
		Origin:      r.Origin.String,
		Destination: r.Destination.String,
		Mission:     r.Mission.String,
		Aircraft:    r.Aircraft.String,
		SourceRef:   r.SourceRef.String,
		Status:      ManifestStatus(r.Status),
		WindowStart: parseNullTime(r.WindowStart),
		WindowEnd:   parseNullTime(r.WindowEnd),
		Operator:    r.Operator.String,
	}
	if r.Date.Valid {
		if d, err := time.Parse(DateLayout, r.Date.String); err == nil {
			m.Date = &d
		}
	}
	if registered, err := parseTimeString(r.RegisteredAt); err == nil {
		m.RegisteredAt = registered
	}
	return m
}

type manifestCountsRow struct {
	manifestRow
	VolumeCount   int `db:"volume_count"`
	ExpectedBoxes int `db:"expected_boxes"`
	ReceivedBoxes int `db:"received_boxes"`
}

type volumeRow struct {
	ID              int64           `db:"id"`
	ManifestID      int64           `db:"manifest_id"`
	Sender          string          `db:"sender"`
	Recipient       string          `db:"recipient"`
	Number          string          `db:"volume_number"`
	Expected        int             `db:"expected"`
	Received        int             `db:"received"`
	Weight          sql.NullFloat64 `db:"weight"`
	Cubage          sql.NullFloat64 `db:"cubage"`
	Priority        sql.NullString  `db:"priority"`
	MaterialType    sql.NullString  `db:"material_type"`
	Packaging       sql.NullString  `db:"packaging"`
	Status          string          `db:"status"`
	FirstReceivedAt sql.NullString  `db:"first_received_at"`
	LastReceivedAt  sql.NullString  `db:"last_received_at"`
}

func (r volumeRow) model() Volume {
	v := Volume{
		ID:              r.ID,
		ManifestID:      r.ManifestID,
		Sender:          r.Sender,
		Recipient:       r.Recipient,
		Number:          r.Number,
		Expected:        r.Expected,
		Received:        r.Received,
		Priority:        r.Priority.String,
		MaterialType:    r.MaterialType.String,
		Packaging:       r.Packaging.String,
		Status:          VolumeStatus(r.Status),
		FirstReceivedAt: parseNullTime(r.FirstReceivedAt),
		LastReceivedAt:  parseNullTime(r.LastReceivedAt),
	}
	if r.Weight.Valid {
		w := r.Weight.Float64
		v.Weight = &w
	}
	if r.Cubage.Valid {
		c := r.Cubage.Float64
		v.Cubage = &c
	}
	return v
}

func volumeModels(rows []volumeRow) []Volume {
	out := make([]Volume, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out
}

type boxRow struct {
	ID         int64          `db:"id"`
	VolumeID   int64          `db:"volume_id"`
	Number     int            `db:"box_number"`
	Status     string         `db:"status"`
	ReceivedAt sql.NullString `db:"received_at"`
	Operator   sql.NullString `db:"operator"`
}

func (r boxRow) model() Box {
	return Box{
		ID:         r.ID,
		VolumeID:   r.VolumeID,
		Number:     r.Number,
		Status:     BoxStatus(r.Status),
		ReceivedAt: parseNullTime(r.ReceivedAt),
		Operator:   r.Operator.String,
	}
}

type logRow struct {
	ID         int64          `db:"id"`
	ManifestID sql.NullInt64  `db:"manifest_id"`
	Action     string         `db:"action"`
	Detail     sql.NullString `db:"detail"`
	Operator   string         `db:"operator"`
	Timestamp  string         `db:"timestamp"`
}

func (r logRow) model() LogEntry {
	entry := LogEntry{
		ID:       r.ID,
		Action:   r.Action,
		Detail:   r.Detail.String,
		Operator: r.Operator,
	}
	if r.ManifestID.Valid {
		id := r.ManifestID.Int64
		entry.ManifestID = &id
	}
	if ts, err := parseTimeString(r.Timestamp); err == nil {
		entry.Timestamp = ts
	}
	return entry
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Format(DateLayout)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func operatorOrDefault(operator string) string {
	if trimmed := strings.TrimSpace(operator); trimmed != "" {
		return trimmed
	}
	return defaultLogOperator
}

func normalizeSender(sender string) string {
	return strings.ToUpper(strings.TrimSpace(sender))
}
