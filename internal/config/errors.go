package config

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid configuration field with a human-readable
// path and a concrete remediation hint.
type FieldError struct {
	Path    string
	Message string
	Hint    string
}

func (e FieldError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Hint)
}

// InvalidError aggregates every configuration problem found by Validate.
// It is fatal to mode entry and never raised during a running Live session.
type InvalidError struct {
	Fields []FieldError
}

func (e *InvalidError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid configuration"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}
