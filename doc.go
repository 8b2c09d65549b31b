// Package sched provides a single-threaded dependency-injection scheduler:
// a type-keyed resource store, systems that declare which resources they
// touch and how, and a runner that hands every system disjoint views of
// exactly the resources it asked for.
//
// # Overview
//
// A resource is a singleton value of some Go type, owned by the scheduler's
// store. A system is any plain function whose parameters are injectable
// views over resources. The library provides:
//   - One resource instance per type, replaced silently on re-insertion
//   - Read-only (Res) and exclusive (ResMut) parameter kinds
//   - Parameter groups through embedded dig.In, nestable to any depth
//   - Registration-time validation of each system's access plan
//   - A zero-bookkeeping access path once the plan has been proven disjoint
//
// # Basic Usage
//
// Create a scheduler, add resources and systems, and run:
//
//	type Counter struct{ Value int }
//
//	s := sched.New()
//	s.AddResource(Counter{Value: 12})
//
//	err := s.AddSystem(func(c sched.ResMut[Counter]) {
//	    c.Value().Value++
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := s.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Each call to Run executes every registered system once, in registration
// order. Resources persist across runs; mutations made through ResMut are
// visible to every later system in the same pass and to subsequent passes.
//
// # Access Plans
//
// AddSystem computes an AccessSet from the function signature: every
// parameter contributes one descriptor per resource type it touches, Read
// for Res and Write for ResMut. The set is validated once, at registration.
// A system that would alias one resource type with two Writes, or with a
// Write and a Read, is rejected with AccessConflictError and never runs.
// Any number of Read accesses to the same type are allowed.
//
// # Access Strategies
//
// Because validation happens at registration and execution is strictly
// single-threaded, the default retrieval path performs no per-access
// bookkeeping at all. WithCheckedAccess switches the store to a borrow
// counter per resource cell, validating every acquisition at run time; it
// trades a small cost per access for a second, independent safety net while
// developing.
//
// # Parameter Groups
//
// Functions with many parameters can group them behind a struct that embeds
// sched.In:
//
//	type MovementParams struct {
//	    sched.In
//
//	    Positions  sched.ResMut[Positions]
//	    Velocities sched.Res[Velocities]
//	}
//
//	s.AddSystem(func(p MovementParams) { ... })
//
// Group fields are retrieved positionally and contribute to the same access
// plan as top-level parameters; grouping never weakens validation.
package sched
