package store

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateKey reports a manifest number or (manifest, volume number) collision.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound reports a reference to a manifest, volume, or box that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrContention reports that a write kept failing with busy/locked errors
	// after the retry budget ran out. The driver error stays in the chain.
	ErrContention = errors.New("database contention")
	// ErrInvalidCount reports a volume registered with fewer than one box.
	ErrInvalidCount = errors.New("expected box count must be at least 1")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

const (
	sqliteBusyCode             = 5
	sqliteLockedCode           = 6
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

type sqliteCoder interface{ Code() int }

// IsContention reports whether err is a transient SQLite busy/locked condition.
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqliteBusyCode, sqliteLockedCode:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
