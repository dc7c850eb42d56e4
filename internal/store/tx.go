package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Manifest loads a manifest by ID.
func (t *Tx) Manifest(id int64) (*Manifest, error) {
	var row manifestRow
	err := t.tx.GetContext(t.ctx, &row, `SELECT `+manifestColumns+` FROM manifests m WHERE m.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manifest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	m := row.model()
	return &m, nil
}

// Volume loads a volume by ID.
func (t *Tx) Volume(id int64) (*Volume, error) {
	var row volumeRow
	err := t.tx.GetContext(t.ctx, &row, `SELECT `+volumeColumns+` FROM volumes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("volume %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get volume: %w", err)
	}
	v := row.model()
	return &v, nil
}

// Box loads one box of a volume by its sequence number.
func (t *Tx) Box(volumeID int64, number int) (*Box, error) {
	var row boxRow
	err := t.tx.GetContext(t.ctx, &row,
		`SELECT `+boxColumns+` FROM boxes WHERE volume_id = ? AND box_number = ?`, volumeID, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("box %d of volume %d: %w", number, volumeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get box: %w", err)
	}
	b := row.model()
	return &b, nil
}

// OutstandingBoxNumbers lists not-yet-received box numbers in ascending
// order. A limit <= 0 returns all of them.
func (t *Tx) OutstandingBoxNumbers(volumeID int64, limit int) ([]int, error) {
	query := `SELECT box_number FROM boxes WHERE volume_id = ? AND status = ? ORDER BY box_number ASC`
	args := []any{volumeID, BoxNotReceived}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var numbers []int
	if err := t.tx.SelectContext(t.ctx, &numbers, query, args...); err != nil {
		return nil, fmt.Errorf("outstanding boxes: %w", err)
	}
	return numbers, nil
}

// MarkBoxReceived flips a box to RECEIVED. It reports false when the box was
// already received, leaving the row untouched.
func (t *Tx) MarkBoxReceived(volumeID int64, number int, operator string) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE boxes SET status = ?, received_at = ?, operator = ?
         WHERE volume_id = ? AND box_number = ? AND status = ?`,
		BoxReceived, formatTime(t.now), operatorOrDefault(operator), volumeID, number, BoxNotReceived)
	if err != nil {
		return false, fmt.Errorf("mark box received: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// CountReceivedBoxes counts RECEIVED boxes of a volume.
func (t *Tx) CountReceivedBoxes(volumeID int64) (int, error) {
	var count int
	if err := t.tx.GetContext(t.ctx, &count,
		`SELECT COUNT(1) FROM boxes WHERE volume_id = ? AND status = ?`, volumeID, BoxReceived); err != nil {
		return 0, fmt.Errorf("count received boxes: %w", err)
	}
	return count, nil
}

// UpdateVolumeProgress stores the recounted received total and derived
// status. first_received_at is only set once; last_received_at always moves.
func (t *Tx) UpdateVolumeProgress(volumeID int64, received int, status VolumeStatus) error {
	now := formatTime(t.now)
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE volumes SET received = ?, status = ?,
            first_received_at = COALESCE(first_received_at, ?),
            last_received_at = ?
         WHERE id = ?`,
		received, status, now, now, volumeID); err != nil {
		return fmt.Errorf("update volume progress: %w", err)
	}
	return nil
}

// ManifestTotals sums expected and received boxes across a manifest.
func (t *Tx) ManifestTotals(manifestID int64) (Totals, error) {
	var row struct {
		Expected int `db:"expected"`
		Received int `db:"received"`
	}
	if err := t.tx.GetContext(t.ctx, &row,
		`SELECT COALESCE(SUM(expected), 0) AS expected, COALESCE(SUM(received), 0) AS received
         FROM volumes WHERE manifest_id = ?`, manifestID); err != nil {
		return Totals{}, fmt.Errorf("manifest totals: %w", err)
	}
	return Totals{Expected: row.Expected, Received: row.Received}, nil
}

// SetManifestStatus stores a recomputed manifest status.
func (t *Tx) SetManifestStatus(manifestID int64, status ManifestStatus) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE manifests SET status = ? WHERE id = ?`, status, manifestID); err != nil {
		return fmt.Errorf("set manifest status: %w", err)
	}
	return nil
}

// StartWindow records the receiving window start and responsible operator.
// Reopening a finished window clears its end timestamp.
func (t *Tx) StartWindow(manifestID int64, operator string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE manifests SET window_start = ?, window_end = NULL, operator = ? WHERE id = ?`,
		formatTime(t.now), operatorOrDefault(operator), manifestID); err != nil {
		return fmt.Errorf("start window: %w", err)
	}
	return nil
}

// FinishWindow records the receiving window end.
func (t *Tx) FinishWindow(manifestID int64) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE manifests SET window_end = ? WHERE id = ?`, formatTime(t.now), manifestID); err != nil {
		return fmt.Errorf("finish window: %w", err)
	}
	return nil
}

// InsertManifest creates a manifest row in NOT_RECEIVED.
func (t *Tx) InsertManifest(in NewManifest) (int64, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return 0, errors.New("manifest number is required")
	}
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO manifests (
            number, date, origin, destination, mission, aircraft, source_ref, status, registered_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		number,
		nullableDate(in.Date),
		nullableString(in.Origin),
		nullableString(in.Destination),
		nullableString(in.Mission),
		nullableString(in.Aircraft),
		nullableString(in.SourceRef),
		ManifestNotReceived,
		formatTime(t.now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("manifest %s: %w", number, ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert manifest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// InsertVolume creates a volume and its boxes numbered 1..Expected. Extra
// volumes carry the EXTRA_VOLUME tag, everything else starts NOT_RECEIVED.
func (t *Tx) InsertVolume(in NewVolume) (int64, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return 0, errors.New("volume number is required")
	}
	if in.Expected < 1 {
		return 0, fmt.Errorf("volume %s: %w", number, ErrInvalidCount)
	}
	if _, err := t.Manifest(in.ManifestID); err != nil {
		return 0, err
	}

	status := VolumeNotReceived
	if in.Extra {
		status = VolumeExtra
	}
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO volumes (
            manifest_id, sender, recipient, volume_number, expected, received,
            weight, cubage, priority, material_type, packaging, status
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		in.ManifestID,
		normalizeSender(in.Sender),
		strings.ToUpper(strings.TrimSpace(in.Recipient)),
		number,
		in.Expected,
		nullableFloat(in.Weight),
		nullableFloat(in.Cubage),
		nullableString(in.Priority),
		nullableString(in.MaterialType),
		nullableString(in.Packaging),
		status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("volume %s on manifest %d: %w", number, in.ManifestID, ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert volume: %w", err)
	}
	volumeID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := t.tx.PreparexContext(t.ctx, `INSERT INTO boxes (volume_id, box_number, status) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare box insert: %w", err)
	}
	defer stmt.Close()
	for n := 1; n <= in.Expected; n++ {
		if _, err := stmt.ExecContext(t.ctx, volumeID, n, BoxNotReceived); err != nil {
			return 0, fmt.Errorf("insert box %d: %w", n, err)
		}
	}
	return volumeID, nil
}

// ManifestVolumeIDs lists a manifest's volumes in sender, number order.
func (t *Tx) ManifestVolumeIDs(manifestID int64) ([]int64, error) {
	var ids []int64
	if err := t.tx.SelectContext(t.ctx, &ids,
		`SELECT id FROM volumes WHERE manifest_id = ? ORDER BY sender, volume_number, id`, manifestID); err != nil {
		return nil, fmt.Errorf("manifest volumes: %w", err)
	}
	return ids, nil
}

// DeleteManifest removes a manifest together with its volumes, boxes, and log entries.
func (t *Tx) DeleteManifest(manifestID int64) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM manifests WHERE id = ?`, manifestID)
	if err != nil {
		return fmt.Errorf("delete manifest: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("manifest %d: %w", manifestID, ErrNotFound)
	}
	return nil
}

// AppendLog writes an audit entry inside the transaction.
func (t *Tx) AppendLog(manifestID *int64, action, detail, operator string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO log_entries (manifest_id, action, detail, operator, timestamp) VALUES (?, ?, ?, ?, ?)`,
		nullableInt64(manifestID), action, nullableString(detail), operatorOrDefault(operator), formatTime(t.now)); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// Ref returns a pointer to id for the nullable manifest reference of AppendLog.
func Ref(id int64) *int64 { return &id }
