package service

import "errors"

var (
	ErrMissingAuthorization = errors.New("Missing authorization header")
	ErrInvalidAuthType      = errors.New("Invalid auth type")
	ErrEnqueueFailed        = errors.New("Failed to send events")

	errTokenUndecodable   = errors.New("Token could not be decoded")
	errInvalidTokenFormat = errors.New("Invalid token format")
	errInvalidToken       = errors.New("Invalid token")
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) HTTPError {
	return HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}
