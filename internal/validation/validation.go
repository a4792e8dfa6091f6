// Package validation contains request validation for the API layer.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error carries field-specific validation messages.
type Error struct {
	Fields map[string]string
}

// Error renders the field messages in a stable order.
func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}
