package sqlite

import "errors"

// Sentinel errors for the sqlite repository
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)
