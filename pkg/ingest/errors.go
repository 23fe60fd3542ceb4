package ingest

import "fmt"

// Reason classifies why an upload was rejected.
type Reason string

const (
	ReasonMissingFile    Reason = "missing_file"
	ReasonEmptyFile      Reason = "empty_file"
	ReasonFileTooLarge   Reason = "file_too_large"
	ReasonInvalidType    Reason = "invalid_type"
	ReasonUnreadableCSV  Reason = "unreadable_csv"
	ReasonTooManyRows    Reason = "too_many_rows"
	ReasonMissingColumns Reason = "missing_columns"
	ReasonAllRowsInvalid Reason = "all_rows_invalid"
)

// Error is a rejected upload. Message is meant for the uploader; Data carries
// the diagnostics of the rejection when there are any.
type Error struct {
	Reason  Reason
	Message string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func reject(reason Reason, message string, err error) *Error {
	return &Error{Reason: reason, Message: message, Err: err}
}
