package keen

import "errors"

var (
	// ErrClosed is returned when an operation is attempted on a core
	// that has been closed.
	ErrClosed = errors.New("keen: core closed")

	// ErrEmptyEventName is returned when an event is posted with an
	// empty collection name.
	ErrEmptyEventName = errors.New("keen: empty event name")
)
