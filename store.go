package sched

import (
	"fmt"
	"reflect"
)

// AccessStrategy selects how the store validates resource access at
// retrieval time.
type AccessStrategy int

const (
	// AccessUnchecked hands out views with zero runtime bookkeeping. Sound
	// only because every retrieval derives from an AccessSet validated at
	// registration time and because execution is single-threaded.
	AccessUnchecked AccessStrategy = iota

	// AccessChecked tracks live borrows per cell and fails the run on any
	// conflicting acquisition. The per-access cost buys a safety net that
	// is independent of the registration-time analysis.
	AccessChecked
)

// String returns the string representation of the AccessStrategy.
func (s AccessStrategy) String() string {
	switch s {
	case AccessUnchecked:
		return "Unchecked"
	case AccessChecked:
		return "Checked"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Store owns every resource, keyed by the TypeKey of the stored value.
// At most one cell exists per key: inserting a second value of a type
// replaces the first, it never coexists with it.
type Store struct {
	cells    map[TypeKey]*resourceCell
	strategy AccessStrategy
}

// NewStore returns an empty store using the given access strategy.
func NewStore(strategy AccessStrategy) *Store {
	return &Store{
		cells:    make(map[TypeKey]*resourceCell),
		strategy: strategy,
	}
}

// Insert stores value under the TypeKey of its dynamic type and returns
// that key. Insertion always succeeds; last write wins. An untyped nil has
// no dynamic type to key on, so inserting nil stores nothing and returns
// the zero TypeKey.
func (s *Store) Insert(value any) TypeKey {
	if value == nil {
		return TypeKey{}
	}

	key := keyOf(reflect.TypeOf(value))
	s.cells[key] = newResourceCell(value)
	return key
}

// Contains reports whether a resource of the keyed type is present.
func (s *Store) Contains(key TypeKey) bool {
	_, ok := s.cells[key]
	return ok
}

// Len returns the number of distinct resource types stored.
func (s *Store) Len() int {
	return len(s.cells)
}

// Strategy returns the store's access strategy.
func (s *Store) Strategy() AccessStrategy {
	return s.strategy
}

// acquire hands out a view of the resource under key: a pointer to the
// stored value plus, under the checked strategy, the guard that must be
// released when the view dies. The guard is nil under the unchecked
// strategy, where disjointness was already proven at registration.
func (s *Store) acquire(key TypeKey, access Access) (reflect.Value, *borrowGuard, error) {
	cell, ok := s.cells[key]
	if !ok {
		return reflect.Value{}, nil, MissingResourceError{Key: key}
	}

	if s.strategy == AccessUnchecked {
		return cell.pointer(), nil, nil
	}

	var guard *borrowGuard
	var err error
	if access == Write {
		guard, err = cell.acquireExclusive(key)
	} else {
		guard, err = cell.acquireShared(key)
	}
	if err != nil {
		return reflect.Value{}, nil, err
	}

	return cell.pointer(), guard, nil
}
