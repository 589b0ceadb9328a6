// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
)

// Sentinel errors for handlers.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps handler and backend errors to HTTP responses using RFC7807.
// Backend rejections keep their 4xx status; backend faults and transport
// failures surface as 502.
func RespondError(w http.ResponseWriter, err error) {
	var respErr *api.ResponseError
	var transportErr *api.TransportError
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, api.ErrMissingToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &respErr) && respErr.Status < http.StatusInternalServerError:
		Problem(w, respErr.Status, http.StatusText(respErr.Status), query.NormalizeError(err))
	case errors.As(err, &respErr), errors.As(err, &transportErr):
		Problem(w, http.StatusBadGateway, "Bad Gateway", query.NormalizeError(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
