package verifier

import (
	"errors"
	"fmt"
)

// Static errors for malformed input. They are always wrapped in a FormatError.
var (
	ErrMissingHeader = errors.New("missing header row")
	ErrMissingID     = errors.New("row missing identifier")
	ErrDuplicateIDs  = errors.New("duplicate identifiers found")
	ErrBlobParse     = errors.New("blob is not valid JSON")
	ErrMalformedCSV  = errors.New("malformed CSV")
)

// FormatError reports an input that cannot be compared at all.
// Any FormatError aborts the comparison; no partial report is produced.
type FormatError struct {
	Source string // file path, or "<row id>" context for blob errors
	Reason error  // one of the Err* sentinels above
	Detail string
	Err    error // underlying parser error, if any
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel reason and the underlying cause.
func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}
