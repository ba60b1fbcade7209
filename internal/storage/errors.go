package storage

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrJobOrderExists  = errors.New("job order number already exists")
	ErrStatusConflict  = errors.New("stored status does not match expected status")
	ErrSequenceTaken   = errors.New("operation sequence already taken")
	ErrReferenceBroken = errors.New("referenced record does not exist")
)
