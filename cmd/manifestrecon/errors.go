package main

import (
	"errors"
	"fmt"

	"manifestrecon/internal/auth"
	"manifestrecon/internal/lookup"
	"manifestrecon/internal/store"
)

// ambiguousVolumeError is returned when a suffix search matched several
// volumes and no --volume-id was given.
type ambiguousVolumeError struct {
	sender     string
	suffix     string
	candidates int
}

func (e *ambiguousVolumeError) Error() string {
	return fmt.Sprintf("%d volumes from %s end in %s", e.candidates, e.sender, e.suffix)
}

var errVolumeNotFound = errors.New("no matching volume")

// describeError turns store and lookup sentinels into actionable messages.
func describeError(err error) string {
	var ambiguous *ambiguousVolumeError
	switch {
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("Error: %v; pick one with --volume-id (see `manifestrecon volume find`)", err)
	case errors.Is(err, store.ErrContention):
		return fmt.Sprintf("Error: the database is busy (%v); retry shortly", err)
	case errors.Is(err, store.ErrDuplicateKey):
		return fmt.Sprintf("Error: %v; it is already registered", err)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errVolumeNotFound):
		return fmt.Sprintf("Error: %v; check the number with `manifestrecon manifest list` or `volume list`", err)
	case errors.Is(err, lookup.ErrEmptySuffix):
		return "Error: type the trailing digits of the volume number"
	case errors.Is(err, auth.ErrSecretNotConfigured):
		return "Error: admin.secret_hash is not set; create one with `manifestrecon secret hash`"
	case errors.Is(err, auth.ErrSecretMismatch):
		return "Error: wrong admin secret"
	case errors.Is(err, store.ErrSchemaMismatch):
		return fmt.Sprintf("Error: %v; the database was created by another manifestrecon version", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
