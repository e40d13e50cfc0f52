package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrTimeConflict = errors.New("booking time conflicts with existing booking")

	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrLockHeld is returned by a slot locker when another request owns the slot
	// for longer than the caller was willing to wait.
	ErrLockHeld = errors.New("booking slot is locked by another request")

	ErrLockLost = errors.New("booking slot lock expired before release")
)
