package api

import (
	"net/url"
	"strings"
	"time"
)

// Params holds optional query-string parameters. Empty values are omitted from the
// encoded query rather than sent blank.
type Params map[string]string

// Values converts p into url.Values, skipping absent parameters.
func (p Params) Values() url.Values {
	values := url.Values{}
	for key, value := range p {
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		values.Set(key, value)
	}
	return values
}

// Encode returns the encoded query string without the leading question mark.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Date formats t as a backend date parameter. The zero time yields an empty string
// so the parameter is omitted.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
