package sched

import (
	"fmt"
	"reflect"
)

// BorrowState is the runtime borrow bookkeeping of one resource cell under
// the checked access strategy.
type BorrowState int

const (
	// Free means no view of the cell is live.
	Free BorrowState = iota

	// SharedHeld means one or more read-only views are live.
	SharedHeld

	// ExclusiveHeld means the single mutable view is live.
	ExclusiveHeld
)

// String returns the string representation of the BorrowState.
func (s BorrowState) String() string {
	switch s {
	case Free:
		return "Free"
	case SharedHeld:
		return "SharedHeld"
	case ExclusiveHeld:
		return "ExclusiveHeld"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// resourceCell boxes a single resource value behind a type-erased pointer.
//
// Under the checked strategy the cell tracks live borrows in a counter:
// zero is Free, a positive value counts shared views, exclusiveBorrow marks
// the one live mutable view. Under the unchecked strategy the counter is
// never touched; callers hold a registration-time proof that all of their
// live accesses are disjoint.
type resourceCell struct {
	ptr     reflect.Value // pointer to the stored value
	borrows int
}

const exclusiveBorrow = -1

// newResourceCell boxes value into a fresh allocation so every view hands
// out the same underlying storage for the cell's whole lifetime.
func newResourceCell(value any) *resourceCell {
	v := reflect.ValueOf(value)
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)

	return &resourceCell{ptr: ptr}
}

func (c *resourceCell) state() BorrowState {
	switch {
	case c.borrows == 0:
		return Free
	case c.borrows == exclusiveBorrow:
		return ExclusiveHeld
	default:
		return SharedHeld
	}
}

// acquireShared hands out a read-only view. It fails while the mutable view
// is live.
func (c *resourceCell) acquireShared(key TypeKey) (*borrowGuard, error) {
	if c.borrows == exclusiveBorrow {
		return nil, AccessError{Key: key, Access: Read, State: ExclusiveHeld}
	}

	c.borrows++
	return &borrowGuard{cell: c, access: Read}, nil
}

// acquireExclusive hands out the single mutable view. It fails unless the
// cell is Free.
func (c *resourceCell) acquireExclusive(key TypeKey) (*borrowGuard, error) {
	if c.borrows != 0 {
		return nil, AccessError{Key: key, Access: Write, State: c.state()}
	}

	c.borrows = exclusiveBorrow
	return &borrowGuard{cell: c, access: Write}, nil
}

// pointer is the unchecked fast path: a raw view with zero bookkeeping.
// Callers must hold an AccessSet validated at registration time proving the
// access disjoint from every other live access.
func (c *resourceCell) pointer() reflect.Value {
	return c.ptr
}

// borrowGuard restores a cell's borrow state exactly once. Holders must
// release it on every exit path of the invocation that acquired it.
type borrowGuard struct {
	cell     *resourceCell
	access   Access
	released bool
}

func (g *borrowGuard) release() {
	if g == nil || g.released {
		return
	}
	g.released = true

	if g.access == Write {
		g.cell.borrows = 0
		return
	}

	g.cell.borrows--
}

// releaseAll releases guards in reverse acquisition order.
func releaseAll(guards []*borrowGuard) {
	for i := len(guards) - 1; i >= 0; i-- {
		guards[i].release()
	}
}
