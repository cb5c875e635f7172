package utils

import (
	"fmt"
	"slices"
	"strings"
)

// CustomError is a message plus the values that explain it.
type CustomError struct {
	msg  string
	args map[string]any
}

func NewCustomError(msg string, args map[string]any) *CustomError {
	if args == nil {
		args = make(map[string]any)
	}
	return &CustomError{
		msg:  msg,
		args: args,
	}
}

func (e CustomError) Message() string {
	return e.msg
}

// Get the error message, args in key order
func (e CustomError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.msg)
	if len(e.args) == 0 {
		return sb.String()
	}
	sb.WriteString(" |")
	for _, key := range e.keys() {
		sb.WriteString(fmt.Sprintf(" %s: %v", key, e.args[key]))
	}
	return sb.String()
}

// LogArgs flattens the args for slog.
func (e CustomError) LogArgs() []any {
	out := make([]any, 0, len(e.args)*2)
	for _, key := range e.keys() {
		out = append(out, key, e.args[key])
	}
	return out
}

func (e CustomError) keys() []string {
	keys := make([]string, 0, len(e.args))
	for key := range e.args {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
