package agent

import (
	"fmt"
	"reflect"
)

// NilResultError is reported when a handler returns neither a result nor an error.
type NilResultError struct {
	Agent string
}

func (e *NilResultError) Error() string {
	return fmt.Sprintf("agent %s returned no result", e.Agent)
}

// PanicError carries a recovered panic value that was not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprint(e.Value)
}

// asError converts a recovered panic value to an error.
func asError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &PanicError{Value: rec}
}

// TypeName returns the name of err's dynamic type without package or pointer,
// e.g. "NilResultError" or "errorString".
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
