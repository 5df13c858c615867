// Package apperrors defines the layered error values used across the
// provisioning services. Errors form sentinel hierarchies: packages declare
// roots with New, derive more specific children, and callers match any level
// with errors.Is. Every derivation returns a new value; sentinels are never
// mutated.
package apperrors

// Error is the service error type. All deriving methods (Msg, Prefix, Suffix,
// Err, SetStatusCode, ...) return a child and leave the receiver unchanged.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	MsgErr(msg string, err ...error) Error
	Msg(msg string) Error
	Prefix(prefix string) Error
	Suffix(suffix string) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
