package memory

import "errors"

// Sentinel errors for the in-memory repository
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)
