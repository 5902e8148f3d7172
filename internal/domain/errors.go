package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("already exists")
	ErrForbidden     = errors.New("forbidden")
	ErrRoomTypeInUse = errors.New("room type has active reservations")
	// ErrConflict means another writer held the availability lock; the
	// whole check-and-create sequence may be retried.
	ErrConflict = errors.New("concurrent booking conflict")
	// ErrLockLost is the cancel cause of a held context whose lease expired.
	ErrLockLost = fmt.Errorf("%w: lock lease lost", ErrConflict)
)

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CapacityError rejects a booking at the earliest night that cannot take it.
type CapacityError struct {
	Night     time.Time
	Requested int
	Remaining int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient allotment (%s): requested %d, remaining %d, capacity %d",
		e.Night.Format("2006-01-02"), e.Requested, e.Remaining, e.Capacity)
}
