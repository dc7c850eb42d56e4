package store

import (
	"context"
	"fmt"
	"strings"
)

// AppendLog writes an independent audit entry. manifestID may be nil.
func (s *Store) AppendLog(ctx context.Context, manifestID *int64, action, detail, operator string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		action = ActionNote
	}
	return s.Write(ctx, func(tx *Tx) error {
		if manifestID != nil {
			if _, err := tx.Manifest(*manifestID); err != nil {
				return err
			}
		}
		return tx.AppendLog(manifestID, action, detail, operator)
	})
}

// ListLogs returns audit entries newest first. A nil manifestID returns the
// whole log. limit <= 0 means no limit.
func (s *Store) ListLogs(ctx context.Context, manifestID *int64, limit int) ([]LogEntry, error) {
	query := `SELECT id, manifest_id, action, detail, operator, timestamp FROM log_entries`
	var args []any
	if manifestID != nil {
		query += ` WHERE manifest_id = ?`
		args = append(args, *manifestID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []logRow
	if err := s.read(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows, query, args...)
	}); err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	out := make([]LogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}
