package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// CheckHealth returns diagnostic information about the manifest database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.GetContext(connCtx, &health.SchemaVersion, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.GetContext(connCtx, &health.JournalMode, "PRAGMA journal_mode"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read journal mode: %w", err)
	}

	var tables []string
	if err := s.db.SelectContext(connCtx, &tables, "SELECT name FROM sqlite_master WHERE type = 'table'"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	present := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		present[name] = struct{}{}
	}
	for _, name := range requiredTables {
		if _, ok := present[name]; !ok {
			health.MissingTables = append(health.MissingTables, name)
		}
	}

	if len(health.MissingTables) == 0 {
		counts := []struct {
			table string
			dest  *int
		}{
			{"manifests", &health.Manifests},
			{"volumes", &health.Volumes},
			{"boxes", &health.Boxes},
			{"log_entries", &health.LogEntries},
		}
		for _, c := range counts {
			if err := s.db.GetContext(connCtx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("count %s: %w", c.table, err)
			}
		}
	}

	var integrityResult string
	if err := s.db.GetContext(connCtx, &integrityResult, "PRAGMA integrity_check"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
