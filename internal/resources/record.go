package resources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fulfilhub/dashboard/internal/api"
)

// Record is one backend row. The gateway does not own business data, so rows are
// kept as decoded JSON objects and rendered through the catalog fields.
type Record map[string]any

// ID returns the record identifier as a string.
func (r Record) ID() string { return r.Field("id") }

// Field formats the named attribute for display.
func (r Record) Field(name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func decodeList(raw json.RawMessage) ([]Record, error) {
	data, err := envelopeData(raw)
	if err != nil || len(data) == 0 {
		return []Record{}, err
	}
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("resources: decode list: %w", err)
	}
	if rows == nil {
		rows = []Record{}
	}
	return rows, nil
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	data, err := envelopeData(raw)
	if err != nil || len(data) == 0 {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("resources: decode record: %w", err)
	}
	return rec, nil
}

// envelopeData unwraps {"data": ...}; bare payloads are returned as-is.
func envelopeData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return raw, nil
	}
	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("resources: decode envelope: %w", err)
	}
	if env.Data == nil {
		return raw, nil
	}
	return env.Data, nil
}

// Values converts submitted form values into a request body, coercing numeric
// fields. Empty optional fields are left out.
func (r Resource) Values(form map[string]string) (map[string]any, error) {
	body := make(map[string]any, len(r.Fields))
	var missing []string
	for _, f := range r.Fields {
		raw := strings.TrimSpace(form[f.Name])
		if raw == "" {
			if f.Required {
				missing = append(missing, f.Label)
			}
			continue
		}
		if f.Type == FieldNumber {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &FormError{Message: f.Label + " harus berupa angka"}
			}
			body[f.Name] = n
			continue
		}
		body[f.Name] = raw
	}
	if len(missing) > 0 {
		return nil, &FormError{Message: strings.Join(missing, ", ") + " wajib diisi"}
	}
	return body, nil
}

// FormError reports invalid user input; Message is shown to the user as-is.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }
