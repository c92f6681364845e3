package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrTokenInvalid reports that the server rejected a JWT during verification.
var ErrTokenInvalid = errors.New("api: token not valid")

// Error describes a failed HTTP exchange with no recognized error body.
type Error struct {
	Path   string
	Status int
}

func (e *Error) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// ValidationError carries field-keyed messages from signup and login
// endpoints. Keys follow the server's field names; server-wide failures
// arrive under "detail" or "non_field_errors".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "api: validation failed: " + e.Message()
}

// Message joins all field messages into a single human-readable string.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return "request rejected"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// decodeValidationBody parses a rejection body of the shape the auth
// endpoints return: a JSON object whose values are either message arrays
// (field errors) or plain strings ("detail"). A body that does not match
// yields nil and the caller falls back to a generic Error.
func decodeValidationBody(body []byte) *ValidationError {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil
	}
	fields := make(map[string]string, len(raw))
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			fields[key] = v
		case []any:
			if len(v) == 0 {
				continue
			}
			if s, ok := v[0].(string); ok {
				fields[key] = s
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
