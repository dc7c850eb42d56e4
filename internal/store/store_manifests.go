package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateManifest registers a manifest. The number is the business key;
// registering it twice fails with ErrDuplicateKey.
func (s *Store) CreateManifest(ctx context.Context, in NewManifest, operator string) (int64, error) {
	var id int64
	err := s.Write(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.InsertManifest(in)
		if err != nil {
			return err
		}
		return tx.AppendLog(&id, ActionManifestCreated, "Manifest "+strings.TrimSpace(in.Number), operator)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetManifest fetches a manifest by identifier.
func (s *Store) GetManifest(ctx context.Context, id int64) (*Manifest, error) {
	var row manifestRow
	err := s.read(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, `SELECT `+manifestColumns+` FROM manifests m WHERE m.id = ?`, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manifest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	m := row.model()
	return &m, nil
}

// GetManifestByNumber fetches a manifest by its business key.
func (s *Store) GetManifestByNumber(ctx context.Context, number string) (*Manifest, error) {
	number = strings.TrimSpace(number)
	var row manifestRow
	err := s.read(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, `SELECT `+manifestColumns+` FROM manifests m WHERE m.number = ?`, number)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manifest %s: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest by number: %w", err)
	}
	m := row.model()
	return &m, nil
}

// ListManifests returns manifests with aggregate volume and box counts,
// newest date first.
func (s *Store) ListManifests(ctx context.Context, filter ManifestFilter) ([]ManifestWithCounts, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "m.status = ?")
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, "m.date >= ?")
		args = append(args, filter.DateFrom.Format(DateLayout))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "m.date <= ?")
		args = append(args, filter.DateTo.Format(DateLayout))
	}

	query := `SELECT ` + manifestColumns + `,
            COUNT(v.id) AS volume_count,
            COALESCE(SUM(v.expected), 0) AS expected_boxes,
            COALESCE(SUM(v.received), 0) AS received_boxes
        FROM manifests m
        LEFT JOIN volumes v ON v.manifest_id = m.id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY m.id ORDER BY m.date DESC, m.id DESC"

	var rows []manifestCountsRow
	if err := s.read(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows, query, args...)
	}); err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}

	out := make([]ManifestWithCounts, 0, len(rows))
	for _, r := range rows {
		out = append(out, ManifestWithCounts{
			Manifest:      r.manifestRow.model(),
			VolumeCount:   r.VolumeCount,
			ExpectedBoxes: r.ExpectedBoxes,
			ReceivedBoxes: r.ReceivedBoxes,
		})
	}
	return out, nil
}

// DeleteManifest cascades through volumes, boxes, and log entries. The
// deletion itself is recorded as a manifest-less audit entry.
func (s *Store) DeleteManifest(ctx context.Context, id int64, operator string) error {
	return s.Write(ctx, func(tx *Tx) error {
		m, err := tx.Manifest(id)
		if err != nil {
			return err
		}
		if err := tx.DeleteManifest(id); err != nil {
			return err
		}
		return tx.AppendLog(nil, ActionManifestDeleted,
			fmt.Sprintf("Manifest %s (id %d) deleted with all volumes", m.Number, id), operator)
	})
}
