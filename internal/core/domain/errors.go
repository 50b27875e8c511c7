package domain

import "errors"

var (
	ErrInvalidField     = errors.New("invalid field")
	ErrDuplicateID      = errors.New("duplicate product id")
	ErrNotFound         = errors.New("product not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrStorageCorrupt   = errors.New("storage corrupt")
	ErrLogWrite         = errors.New("audit log write failed")

	ErrAuthentication   = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("session not authenticated")
)
