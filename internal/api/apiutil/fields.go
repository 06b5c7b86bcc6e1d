package apiutil

import (
	"fmt"
	"strings"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// RequireTrimmedField returns the trimmed value, or a FieldError when
// nothing but whitespace remains.
func RequireTrimmedField(raw string, field string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return value, nil
}
