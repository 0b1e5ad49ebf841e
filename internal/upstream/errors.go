package upstream

import (
	"encoding/json"
	"sort"
	"strings"
)

// Error is a classified failure from the retail API.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Validation reports whether the error carries per-field validation messages.
func (e *Error) Validation() bool { return len(e.Fields) > 0 }

// Classify extracts a user-facing message from a failed response body. The
// sources are checked in order: a per-field validation map, a "message"
// field, an "error" field, then a generic fallback. Field messages are
// concatenated with newlines.
func Classify(status int, body []byte) *Error {
	var payload struct {
		Errors  map[string]any `json:"errors"`
		Message string         `json:"message"`
		ErrMsg  string         `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	if len(payload.Errors) > 0 {
		fields := map[string][]string{}
		for name, v := range payload.Errors {
			switch msgs := v.(type) {
			case []any:
				for _, m := range msgs {
					if s, ok := m.(string); ok {
						fields[name] = append(fields[name], s)
					}
				}
			case string:
				fields[name] = append(fields[name], msgs)
			}
		}
		if len(fields) > 0 {
			return &Error{Status: status, Message: joinFieldMessages(fields), Fields: fields}
		}
	}
	if payload.Message != "" {
		return &Error{Status: status, Message: payload.Message}
	}
	if payload.ErrMsg != "" {
		return &Error{Status: status, Message: payload.ErrMsg}
	}
	return &Error{Status: status, Message: "The orders service rejected the request"}
}

func joinFieldMessages(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []string
	for _, name := range names {
		all = append(all, fields[name]...)
	}
	return strings.Join(all, "\n")
}
