// Package validation checks user-supplied input. Failures are returned
// as Error values so handlers can map them to 400 responses.
package validation

// Error is a user-input failure, as opposed to an infrastructure one.
type Error string

func (e Error) Error() string { return string(e) }
