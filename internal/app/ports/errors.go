package ports

import "errors"

// Sentinel errors shared by all repositories. Adapters translate their
// driver errors into these; handlers map them onto status codes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
