package sched

// ============================================================================
// Shared Test Types
// ============================================================================

// TCounter is a basic resource for testing.
type TCounter struct {
	Value int
}

// TName is a second resource type, distinct from TCounter.
type TName struct {
	Value string
}

// TPosition and TVelocity model the two-resource movement scenario.
type TPosition struct {
	X, Y float64
}

type TVelocity struct {
	DX, DY float64
}

// TUnregistered is never inserted into any store.
type TUnregistered struct {
	Value int
}

// TMovementParams is a parameter group touching two resources.
type TMovementParams struct {
	In

	Position ResMut[TPosition]
	Velocity Res[TVelocity]
}

// TNestedParams nests a group inside a group.
type TNestedParams struct {
	In

	Movement TMovementParams
	Name     Res[TName]
}

// TBadGroup carries an unexported field, which cannot be injected.
type TBadGroup struct {
	In

	counter Res[TCounter]
}
