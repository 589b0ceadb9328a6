package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMethod is returned before any network call when a request
	// descriptor carries a method outside GET, POST, PUT, PATCH and DELETE.
	ErrInvalidMethod = errors.New("api: invalid method")
	// ErrMissingToken is returned before any network call when an authenticated
	// request is issued without a session token.
	ErrMissingToken = errors.New("api: missing auth token")
	// ErrMissingPathParam is returned when an endpoint placeholder has no value.
	ErrMissingPathParam = errors.New("api: missing path parameter")
)

// ResponseError reports a response from the backend with a status of 400 or above.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.URL, e.Status)
}

// TransportError reports a request that was sent but never got a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
