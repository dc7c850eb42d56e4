package store

import (
	"context"
	"fmt"
	"math"
)

// GetStatistics aggregates volume and box counts for a manifest.
func (s *Store) GetStatistics(ctx context.Context, manifestID int64) (Statistics, error) {
	if _, err := s.GetManifest(ctx, manifestID); err != nil {
		return Statistics{}, err
	}

	var row struct {
		Volumes            int     `db:"volumes"`
		VolumesNotReceived int     `db:"not_received"`
		VolumesPartial     int     `db:"partial"`
		VolumesComplete    int     `db:"complete"`
		VolumesExtra       int     `db:"extra"`
		ExpectedBoxes      int     `db:"expected_boxes"`
		ReceivedBoxes      int     `db:"received_boxes"`
		TotalWeight        float64 `db:"total_weight"`
		TotalCubage        float64 `db:"total_cubage"`
	}
	err := s.read(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, `SELECT
                COUNT(id) AS volumes,
                COALESCE(SUM(CASE WHEN status = 'NOT_RECEIVED' THEN 1 ELSE 0 END), 0) AS not_received,
                COALESCE(SUM(CASE WHEN status = 'PARTIAL' THEN 1 ELSE 0 END), 0) AS partial,
                COALESCE(SUM(CASE WHEN status = 'COMPLETE' THEN 1 ELSE 0 END), 0) AS complete,
                COALESCE(SUM(CASE WHEN status = 'EXTRA_VOLUME' THEN 1 ELSE 0 END), 0) AS extra,
                COALESCE(SUM(expected), 0) AS expected_boxes,
                COALESCE(SUM(received), 0) AS received_boxes,
                COALESCE(SUM(weight), 0.0) AS total_weight,
                COALESCE(SUM(cubage), 0.0) AS total_cubage
            FROM volumes WHERE manifest_id = ?`, manifestID)
	})
	if err != nil {
		return Statistics{}, fmt.Errorf("manifest statistics: %w", err)
	}

	stats := Statistics{
		ManifestID:         manifestID,
		Volumes:            row.Volumes,
		VolumesNotReceived: row.VolumesNotReceived,
		VolumesPartial:     row.VolumesPartial,
		VolumesComplete:    row.VolumesComplete,
		VolumesExtra:       row.VolumesExtra,
		ExpectedBoxes:      row.ExpectedBoxes,
		ReceivedBoxes:      row.ReceivedBoxes,
		TotalWeight:        row.TotalWeight,
		TotalCubage:        row.TotalCubage,
	}
	if stats.ExpectedBoxes > 0 {
		stats.PercentReceived = math.Round(float64(stats.ReceivedBoxes)/float64(stats.ExpectedBoxes)*1000) / 10
	}
	return stats, nil
}
