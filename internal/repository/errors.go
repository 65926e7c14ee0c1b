package repository

import "errors"

// ErrNotFound is returned (wrapped) when a lookup matches no row or key.
var ErrNotFound = errors.New("not found")
