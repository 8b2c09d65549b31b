package sched

import (
	"fmt"
	"strings"
)

// Access declares how a parameter touches a resource: shared and read-only,
// or exclusive and mutable.
type Access int

const (
	// Read grants a shared, read-only view of a resource. Any number of
	// Read accesses to the same resource may be live at the same time.
	Read Access = iota

	// Write grants the single exclusive, mutable view of a resource. Within
	// one system a Write excludes every other access to the same resource.
	Write
)

// String returns the string representation of the Access.
func (a Access) String() string {
	switch a {
	case Read:
		return "Read"
	case Write:
		return "Write"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// IsValid checks if the access kind is valid.
func (a Access) IsValid() bool {
	return a == Read || a == Write
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Read":
		*a = Read
	case "Write":
		*a = Write
	default:
		return fmt.Errorf("invalid access kind: %q", string(text))
	}

	return nil
}

// AccessDescriptor declares that one parameter touches the resource keyed
// by Key with the given access kind. Position is the index of the declaring
// parameter in the system signature; members of a parameter group report
// the position of the group parameter that contains them.
type AccessDescriptor struct {
	Key      TypeKey
	Access   Access
	Position int
}

func (d AccessDescriptor) String() string {
	return fmt.Sprintf("%s %s", d.Access, d.Key)
}

// AccessSet is the ordered sequence of accesses declared by one system's
// parameters, in declaration order.
type AccessSet []AccessDescriptor

// Validate checks the set for internal conflicts: a resource type appearing
// with Write more than once, or with both Write and Read. Two Read accesses
// to the same type never conflict. On conflict it returns an
// AccessConflictError naming the type and the parameter positions involved.
func (s AccessSet) Validate() error {
	type tally struct {
		reads  int
		writes int
	}

	tallies := make(map[TypeKey]*tally, len(s))
	keys := make([]TypeKey, 0, len(s)) // first-appearance order, map iteration is not deterministic

	for _, d := range s {
		t, ok := tallies[d.Key]
		if !ok {
			t = &tally{}
			tallies[d.Key] = t
			keys = append(keys, d.Key)
		}

		switch d.Access {
		case Read:
			t.reads++
		case Write:
			t.writes++
		}
	}

	for _, key := range keys {
		t := tallies[key]
		if t.writes > 1 || (t.writes == 1 && t.reads > 0) {
			conflicts := make(AccessSet, 0, t.reads+t.writes)
			for _, d := range s {
				if d.Key == key {
					conflicts = append(conflicts, d)
				}
			}

			return AccessConflictError{Key: key, Conflicts: conflicts}
		}
	}

	return nil
}

// String returns the set as a comma-separated list of accesses.
func (s AccessSet) String() string {
	if len(s) == 0 {
		return "(none)"
	}

	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}

	return strings.Join(parts, ", ")
}
