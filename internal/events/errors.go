package events

import (
	"errors"
	"fmt"
	"time"
)

// FetchError wraps a storage-level failure from the event store. It is
// transient: callers retry via the refresh timer or a manual retry, and
// must not treat it as an empty result.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("event store %s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InvalidRangeError reports a custom date range whose start is after its
// end. It comes from user input validation and is never retried.
type InvalidRangeError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: from %s is after to %s",
		e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

// ErrConfirmationRequired is returned by BulkDelete when the destructive
// operation was not confirmed with the exact confirmation phrase.
var ErrConfirmationRequired = errors.New("bulk delete requires explicit confirmation")
