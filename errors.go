package sched

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.
// Never return these directly to users - always wrap them with context.

var (
	// Registration errors.
	ErrSystemNil         = errors.New("system cannot be nil")
	ErrSystemNotFunction = errors.New("system must be a function")
	ErrSystemVariadic    = errors.New("system cannot be variadic")
	ErrSystemBadReturn   = errors.New("system must return nothing or a single error")

	// Resource errors.
	ErrResourceNil      = errors.New("resource cannot be nil")
	ErrResourceNotFound = errors.New("resource not found")
)

var (
	_ error = AccessConflictError{}
	_ error = MissingResourceError{}
	_ error = AccessError{}
	_ error = RegistrationError{}
	_ error = UnsupportedParameterError{}
	_ error = SystemPanicError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================
// Always use these typed errors instead of fmt.Errorf() or errors.New()
// for domain-specific errors. Wrap sentinel errors with these types.

// AccessConflictError indicates that a single system's parameters would
// alias one resource type with incompatible access kinds. It is raised at
// registration time and the offending system is never added: the conflict
// is a static property of the signature, not a run-time condition.
type AccessConflictError struct {
	Key       TypeKey
	Conflicts AccessSet // every descriptor in the system that touches Key
}

func (e AccessConflictError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("access conflict on %s:\n", e.Key))
	for _, d := range e.Conflicts {
		b.WriteString(fmt.Sprintf("  • parameter %d requests %s access\n", d.Position, d.Access))
	}
	b.WriteString("\nWrite access is exclusive: within one system a resource type may appear\n")
	b.WriteString("either as a single Write or as any number of Reads, never both.")
	return b.String()
}

// Positions returns the parameter positions involved in the conflict,
// in declaration order.
func (e AccessConflictError) Positions() []int {
	positions := make([]int, 0, len(e.Conflicts))
	for _, d := range e.Conflicts {
		positions = append(positions, d.Position)
	}
	return positions
}

// MissingResourceError indicates a system declared a dependency on a
// resource type that was never added to the store. It is fatal for the run
// that produced it: a system cannot proceed without its dependencies, and
// partial execution is unsafe to reason about.
type MissingResourceError struct {
	Key    TypeKey
	System string // empty when the failure is not tied to a system
}

func (e MissingResourceError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("missing resource: system %s requires %s, which was never added", e.System, e.Key)
	}
	return fmt.Sprintf("missing resource: %s was never added", e.Key)
}

func (e MissingResourceError) Unwrap() error {
	return ErrResourceNotFound
}

// AccessError indicates the checked access strategy observed a conflicting
// live borrow: the FAIL transition of the cell state machine. Like a
// missing resource it aborts the whole run; a conflicting borrow means a
// bug in system authoring, never a transient condition.
type AccessError struct {
	Key    TypeKey
	Access Access      // the acquisition that failed
	State  BorrowState // the state the cell was in
}

func (e AccessError) Error() string {
	return fmt.Sprintf("cannot acquire %s access to %s: cell is %s", e.Access, e.Key, e.State)
}

// RegistrationError wraps errors that occur while analyzing a system
// during AddSystem.
type RegistrationError struct {
	System string // readable system name, empty if none could be derived
	Cause  error
}

func (e RegistrationError) Error() string {
	if e.System == "" {
		return fmt.Sprintf("failed to register system: %v", e.Cause)
	}
	return fmt.Sprintf("failed to register system %s: %v", e.System, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// UnsupportedParameterError indicates a system parameter type that the
// scheduler cannot inject.
type UnsupportedParameterError struct {
	Type     reflect.Type
	Position int
	Field    string // set when the offending type is a group field
}

func (e UnsupportedParameterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parameter %d: group field %s of type %s is not injectable; use sched.Res, sched.ResMut, or a nested sched.In group",
			e.Position, e.Field, formatType(e.Type))
	}
	return fmt.Sprintf("parameter %d of type %s is not injectable; use sched.Res, sched.ResMut, or a sched.In group",
		e.Position, formatType(e.Type))
}

// SystemPanicError indicates a system panicked during a run. It captures
// the panic value and stack trace for debugging.
type SystemPanicError struct {
	System string
	Panic  any
	Stack  []byte
}

func (e SystemPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("system %s panicked: %v\n", e.System, e.Panic))
	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}
	return b.String()
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + formatType(t.Elem())
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Map:
		return "map[" + formatType(t.Key()) + "]" + formatType(t.Elem())
	default:
		// reflect already renders named types as pkgname.Name.
		return t.String()
	}
}
