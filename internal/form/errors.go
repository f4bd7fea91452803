package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuotaExhausted is returned when no free runs are left.
	ErrQuotaExhausted = errors.New("form: quota exhausted")

	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("form: submission in progress")
)

// User-facing messages.
const (
	MsgProcessing     = "Processing your request..."
	MsgRequiredFields = "Please fill in all required fields"
	MsgLimitReached   = "You have reached the maximum number of free searches"
	MsgUnexpected     = "Unexpected response format"
	MsgUnreadable     = "Unable to process response data"
	MsgFailed         = "Failed to process request"
)

// ValidationError reports missing or invalid form fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form: invalid fields: %s", strings.Join(e.Fields, ", "))
}

// TransportError wraps a failed webhook call.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("form: webhook: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError wraps a response that could not be interpreted.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("form: response: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// StorageError wraps a failure to read or write local state or the file.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("form: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorBanner formats a message the way the error banner shows it.
func ErrorBanner(message string) string {
	return fmt.Sprintf("Error: %s. Please try again.", message)
}
