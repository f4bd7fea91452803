// Package form drives one lead submission from user input to a saved file.
//
// A Dispatcher owns the application state that a browser form would keep in
// globals: the quota tracker, the webhook client, the exporter and the view.
// Events are applied through Dispatch and move the dispatcher through
//
//	Idle -> Validating -> Submitting -> {Success, Error} -> Idle
//
// Only one submission can be in flight; a second Submit while one is running
// fails with ErrBusy, the equivalent of a disabled submit button.
//
// # Errors
//
// Every failure ends the current submission and leaves the dispatcher Idle:
//   - *ValidationError: missing or invalid input, no quota spent
//   - *TransportError: non-2xx status or network failure, quota refunded
//   - *FormatError: response could not be interpreted, quota refunded
//   - *StorageError: the quota or the file could not be written
//   - ErrQuotaExhausted: no free runs left
package form
