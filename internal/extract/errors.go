package extract

import "fmt"

// Reason classifies why an extraction failed.
type Reason string

const (
	ReasonUnsupportedFormat Reason = "unsupported-format"
	ReasonCorruptArchive    Reason = "corrupt-archive"
	ReasonMissingPart       Reason = "missing-part"
	ReasonDestination       Reason = "destination"
	ReasonTimeout           Reason = "timeout"
	ReasonToolFailure       Reason = "tool-failure"
)

// Error is returned for every extraction failure so callers can branch on
// the reason code.
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extraction failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(reason Reason, detail string, err error) *Error {
	return &Error{Reason: reason, Detail: detail, Err: err}
}
