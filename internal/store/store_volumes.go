package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateVolume registers a volume with Expected boxes numbered 1..Expected.
func (s *Store) CreateVolume(ctx context.Context, in NewVolume, operator string) (int64, error) {
	var id int64
	err := s.Write(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.InsertVolume(in)
		if err != nil {
			return err
		}
		action := ActionVolumeCreated
		if in.Extra {
			action = ActionExtraVolume
		}
		return tx.AppendLog(&in.ManifestID, action,
			fmt.Sprintf("Volume %s (%s, %d boxes)", in.Number, normalizeSender(in.Sender), in.Expected), operator)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetVolume fetches a volume by identifier.
func (s *Store) GetVolume(ctx context.Context, id int64) (*Volume, error) {
	var row volumeRow
	err := s.read(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, `SELECT `+volumeColumns+` FROM volumes WHERE id = ?`, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("volume %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get volume: %w", err)
	}
	v := row.model()
	return &v, nil
}

// ListVolumes returns a manifest's volumes ordered by sender then number.
func (s *Store) ListVolumes(ctx context.Context, manifestID int64) ([]Volume, error) {
	var rows []volumeRow
	if err := s.read(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows,
			`SELECT `+volumeColumns+` FROM volumes WHERE manifest_id = ? ORDER BY sender, volume_number, id`, manifestID)
	}); err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	return volumeModels(rows), nil
}

// VolumesBySender returns a manifest's volumes whose sender equals sender
// after case normalization. An unknown manifest yields ErrNotFound.
func (s *Store) VolumesBySender(ctx context.Context, manifestID int64, sender string) ([]Volume, error) {
	if _, err := s.GetManifest(ctx, manifestID); err != nil {
		return nil, err
	}
	var rows []volumeRow
	if err := s.read(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows,
			`SELECT `+volumeColumns+` FROM volumes WHERE manifest_id = ? AND UPPER(sender) = ? ORDER BY volume_number, id`,
			manifestID, normalizeSender(sender))
	}); err != nil {
		return nil, fmt.Errorf("volumes by sender: %w", err)
	}
	return volumeModels(rows), nil
}

// ListBoxes returns a volume's boxes in sequence order.
func (s *Store) ListBoxes(ctx context.Context, volumeID int64) ([]Box, error) {
	var rows []boxRow
	if err := s.read(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows,
			`SELECT `+boxColumns+` FROM boxes WHERE volume_id = ? ORDER BY box_number`, volumeID)
	}); err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	out := make([]Box, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}
