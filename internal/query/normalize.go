package query

import (
	"encoding/json"
	"errors"

	"github.com/fulfilhub/dashboard/internal/api"
)

// User-visible failure messages.
const (
	MessageFallback     = "Terjadi kesalahan pada server"
	MessageConnectivity = "Tidak ada respons dari server, periksa koneksi Anda"
)

// NormalizeError converts a failed call into one user-visible message. Exactly one
// branch applies: a backend response body, a request without response, or the
// raw error text.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		return messageFromBody(respErr.Body)
	}
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return MessageConnectivity
	}
	return err.Error()
}

func messageFromBody(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil || len(payload.Message) == 0 {
		return MessageFallback
	}
	var nested struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload.Message, &nested) == nil && nested.Error != "" {
		return nested.Error
	}
	var text string
	if json.Unmarshal(payload.Message, &text) == nil && text != "" {
		return text
	}
	return MessageFallback
}
