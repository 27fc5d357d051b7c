package models

import "errors"

var (
	// ErrNotFound marks a query for an instrument that was never created.
	ErrNotFound = errors.New("not found")
	// ErrTransientIO marks a failed cache or store call.
	ErrTransientIO = errors.New("transient io")
	// ErrInternal marks anything else.
	ErrInternal = errors.New("internal error")
)

// Kind returns the taxonomy sentinel err belongs to.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrTransientIO):
		return ErrTransientIO
	default:
		return ErrInternal
	}
}
