package services

import "fmt"

// Error is an expected, recoverable failure surfaced to API callers with a
// stable machine-readable code. Anything else bubbling out of a service is
// an infrastructure failure and becomes an opaque 500.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrTokenNotFound    = &Error{Code: "TOKEN_NOT_FOUND", Message: "qr token not found"}
	ErrTokenExpired     = &Error{Code: "TOKEN_EXPIRED", Message: "qr token has expired"}
	ErrTokenAlreadyUsed = &Error{Code: "TOKEN_ALREADY_USED", Message: "qr token was already used"}

	ErrRedemptionNotFound = &Error{Code: "REDEMPTION_NOT_FOUND", Message: "redemption not found"}
	ErrVenueNotFound      = &Error{Code: "VENUE_NOT_FOUND", Message: "venue not found"}

	ErrForbidden          = &Error{Code: "FORBIDDEN", Message: "actor may not manage this venue"}
	ErrStaffWindowExpired = &Error{Code: "FORBIDDEN", Message: "staff void window expired"}
	ErrRateLimited        = &Error{Code: "RATE_LIMITED", Message: "too many voids, retry later"}
)

// InvalidState reports a state-machine conflict naming the current status.
func InvalidState(current string) *Error {
	return &Error{Code: "INVALID_STATE", Message: fmt.Sprintf("redemption is %q, only success can be voided", current)}
}

// ValidationError reports malformed or missing input.
func ValidationError(msg string) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: msg}
}
