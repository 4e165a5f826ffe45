package reconcile

import "errors"

var (
	ErrEntryNotFound   = errors.New("stranded capture not found")
	ErrAlreadyResolved = errors.New("stranded capture already resolved")
	ErrAccessDenied    = errors.New("access denied")
)
