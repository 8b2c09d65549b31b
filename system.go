package sched

import (
	"errors"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// System is one registered callable together with the access plan computed
// from its signature and validated at registration. A system never owns the
// resources it touches; it borrows them once per run, for the duration of
// the call only.
type System struct {
	id           string
	name         string
	fn           reflect.Value
	sources      []paramSource
	accesses     AccessSet
	returnsError bool
}

// newSystem analyzes fn into a System. fn must be a non-variadic function,
// every parameter must be injectable, and it must return either nothing or
// a single error. The resulting access plan is validated before the system
// is handed back; a conflicting signature never produces a System.
func newSystem(fn any) (*System, error) {
	if fn == nil {
		return nil, RegistrationError{Cause: ErrSystemNil}
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, RegistrationError{System: formatType(t), Cause: ErrSystemNotFunction}
	}

	name := funcName(v)
	if t.IsVariadic() {
		return nil, RegistrationError{System: name, Cause: ErrSystemVariadic}
	}

	switch t.NumOut() {
	case 0:
		// Systems usually communicate through resources alone.
	case 1:
		if !t.Out(0).Implements(errorType) {
			return nil, RegistrationError{System: name, Cause: ErrSystemBadReturn}
		}
	default:
		return nil, RegistrationError{System: name, Cause: ErrSystemBadReturn}
	}

	sys := &System{
		id:           uuid.NewString(),
		name:         name,
		fn:           v,
		returnsError: t.NumOut() == 1,
	}

	for i := 0; i < t.NumIn(); i++ {
		source, err := analyzeParameter(t.In(i), i)
		if err != nil {
			return nil, RegistrationError{System: name, Cause: err}
		}

		sys.sources = append(sys.sources, source)
		sys.accesses = append(sys.accesses, source.describe()...)
	}

	if err := sys.accesses.Validate(); err != nil {
		return nil, RegistrationError{System: name, Cause: err}
	}

	return sys, nil
}

// ID returns the unique identity assigned to the system at registration.
func (s *System) ID() string {
	return s.id
}

// Name returns the readable name derived from the function symbol.
func (s *System) Name() string {
	return s.name
}

// Accesses returns a copy of the system's validated access plan.
func (s *System) Accesses() AccessSet {
	out := make(AccessSet, len(s.accesses))
	copy(out, s.accesses)
	return out
}

// run retrieves every declared parameter from the store and invokes the
// callable. All acquired guards are released on every exit path, including
// a panicking system.
func (s *System) run(store *Store) (err error) {
	args := make([]reflect.Value, 0, len(s.sources))
	var guards []*borrowGuard
	defer func() {
		releaseAll(guards)
	}()

	for _, source := range s.sources {
		value, acquired, buildErr := source.build(store)
		if buildErr != nil {
			var missing MissingResourceError
			if errors.As(buildErr, &missing) && missing.System == "" {
				missing.System = s.name
				return missing
			}

			return buildErr
		}

		guards = append(guards, acquired...)
		args = append(args, value)
	}

	defer func() {
		if r := recover(); r != nil {
			err = SystemPanicError{System: s.name, Panic: r, Stack: debug.Stack()}
		}
	}()

	out := s.fn.Call(args)
	if s.returnsError {
		return errorReturn(out[0])
	}

	return nil
}

// errorReturn extracts a system's returned error. The declared return type
// may be the error interface or any concrete type implementing it; IsNil
// only applies to nilable kinds, so the kind is checked first.
func errorReturn(ret reflect.Value) error {
	switch ret.Kind() {
	case reflect.Interface, reflect.Pointer:
		if ret.IsNil() {
			return nil
		}
	}

	return ret.Interface().(error)
}

// funcName derives a readable name from the function symbol, falling back
// to the signature for values without one.
func funcName(v reflect.Value) string {
	if rf := runtime.FuncForPC(v.Pointer()); rf != nil {
		name := rf.Name()
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}

		if name != "" {
			return name
		}
	}

	return v.Type().String()
}
