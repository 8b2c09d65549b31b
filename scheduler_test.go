package sched_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	sched "github.com/PROMETHIA-27/dependency-injection-like-bevy-from-scratch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Counter struct {
	Value int
}

type Score struct {
	Value int
}

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Unregistered struct{}

// overflowError is a concrete error type; both it and *overflowError
// satisfy the error interface.
type overflowError struct {
	limit int
}

func (e overflowError) Error() string {
	return fmt.Sprintf("counter exceeded %d", e.limit)
}

func TestSchedulerMutationVisibility(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{Value: 12}))

	require.NoError(t, s.AddSystem(func(c sched.ResMut[Counter]) {
		c.Value().Value++
	}))

	observed := 0
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {
		observed = c.Value().Value
	}))

	require.NoError(t, s.Run())
	assert.Equal(t, 13, observed)
}

func TestSchedulerRunIsRepeatable(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{}))

	runs := 0
	require.NoError(t, s.AddSystem(func(c sched.ResMut[Counter]) {
		c.Value().Value++
		runs++
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Run())
	}

	assert.Equal(t, 5, runs)

	// Resources are not reset between runs.
	final := 0
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {
		final = c.Value().Value
	}))
	require.NoError(t, s.Run())
	assert.Equal(t, 6, final)
}

func TestSchedulerResourceReplacement(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{Value: 1}))
	require.NoError(t, s.AddResource(Counter{Value: 2}))

	assert.Equal(t, 1, s.ResourceCount())

	observed := 0
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {
		observed = c.Value().Value
	}))
	require.NoError(t, s.Run())
	assert.Equal(t, 2, observed)
}

func TestSchedulerExecutionOrder(t *testing.T) {
	t.Parallel()

	s := sched.New()

	var order []string
	require.NoError(t, s.AddSystem(func() { order = append(order, "first") }))
	require.NoError(t, s.AddSystem(func() { order = append(order, "second") }))
	require.NoError(t, s.AddSystem(func() { order = append(order, "third") }))

	require.NoError(t, s.Run())
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSchedulerMissingResource(t *testing.T) {
	t.Parallel()

	s := sched.New()

	ran := false
	require.NoError(t, s.AddSystem(func(u sched.Res[Unregistered]) {
		ran = true
	}))

	err := s.Run()
	var missing sched.MissingResourceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, sched.KeyOf[Unregistered](), missing.Key)
	assert.ErrorIs(t, err, sched.ErrResourceNotFound)
	assert.False(t, ran)
}

func TestSchedulerMissingResourceAbortsWholePass(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{}))

	require.NoError(t, s.AddSystem(func(u sched.Res[Unregistered]) {}))

	laterRan := false
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {
		laterRan = true
	}))

	require.Error(t, s.Run())
	assert.False(t, laterRan)
}

func TestSchedulerAccessConflicts(t *testing.T) {
	t.Parallel()

	t.Run("two writes of one type", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddResource(Counter{}))

		err := s.AddSystem(func(a sched.ResMut[Counter], b sched.ResMut[Counter]) {})
		var conflict sched.AccessConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, sched.KeyOf[Counter](), conflict.Key)
		assert.Equal(t, []int{0, 1}, conflict.Positions())

		// The rejected system must not run.
		assert.Equal(t, 0, s.SystemCount())
		require.NoError(t, s.Run())
	})

	t.Run("write plus read of one type", func(t *testing.T) {
		t.Parallel()

		s := sched.New()

		err := s.AddSystem(func(a sched.Res[Counter], b sched.ResMut[Counter]) {})
		var conflict sched.AccessConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{0, 1}, conflict.Positions())
	})

	t.Run("conflict hidden inside a group", func(t *testing.T) {
		t.Parallel()

		type Params struct {
			sched.In

			Counter sched.ResMut[Counter]
		}

		s := sched.New()
		err := s.AddSystem(func(p Params, c sched.Res[Counter]) {})
		var conflict sched.AccessConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{0, 1}, conflict.Positions())
	})
}

func TestSchedulerReaders(t *testing.T) {
	t.Parallel()

	t.Run("one system reading two types", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddResource(Counter{Value: 1}))
		require.NoError(t, s.AddResource(Score{Value: 2}))

		sum := 0
		require.NoError(t, s.AddSystem(func(c sched.Res[Counter], sc sched.Res[Score]) {
			sum = c.Value().Value + sc.Value().Value
		}))

		require.NoError(t, s.Run())
		assert.Equal(t, 3, sum)
	})

	t.Run("one system reading one type twice", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddResource(Counter{Value: 5}))

		require.NoError(t, s.AddSystem(func(a, b sched.Res[Counter]) {
			assert.Equal(t, a.Value(), b.Value())
		}))

		require.NoError(t, s.Run())
	})

	t.Run("two systems reading the same type in one pass", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddResource(Counter{Value: 5}))

		reads := 0
		reader := func(c sched.Res[Counter]) { reads += c.Value().Value }
		require.NoError(t, s.AddSystem(reader))
		require.NoError(t, s.AddSystem(reader))

		require.NoError(t, s.Run())
		assert.Equal(t, 10, reads)
	})
}

func TestSchedulerParameterGroups(t *testing.T) {
	t.Parallel()

	type MovementParams struct {
		sched.In

		Position sched.ResMut[Position]
		Velocity sched.Res[Velocity]
	}

	s := sched.New()
	require.NoError(t, s.AddResource(Position{X: 1, Y: 1}))
	require.NoError(t, s.AddResource(Velocity{DX: 2, DY: 3}))

	require.NoError(t, s.AddSystem(func(p MovementParams) {
		pos := p.Position.Value()
		pos.X += p.Velocity.Value().DX
		pos.Y += p.Velocity.Value().DY
	}))

	observed := Position{}
	require.NoError(t, s.AddSystem(func(p sched.Res[Position]) {
		observed = p.Value()
	}))

	require.NoError(t, s.Run())
	assert.Equal(t, Position{X: 3, Y: 4}, observed)
}

func TestSchedulerCheckedAccess(t *testing.T) {
	t.Parallel()

	s := sched.New(sched.WithCheckedAccess())
	require.NoError(t, s.AddResource(Counter{Value: 12}))

	require.NoError(t, s.AddSystem(func(c sched.ResMut[Counter]) {
		c.Value().Value++
	}))

	observed := 0
	require.NoError(t, s.AddSystem(func(a, b sched.Res[Counter]) {
		observed = a.Value().Value
	}))

	require.NoError(t, s.Run())
	require.NoError(t, s.Run())
	assert.Equal(t, 14, observed)
}

func TestSchedulerSystemErrors(t *testing.T) {
	t.Parallel()

	t.Run("a returned error aborts the pass", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		sentinel := errors.New("boom")

		require.NoError(t, s.AddSystem(func() error { return sentinel }))

		laterRan := false
		require.NoError(t, s.AddSystem(func() { laterRan = true }))

		assert.ErrorIs(t, s.Run(), sentinel)
		assert.False(t, laterRan)
	})

	t.Run("a concrete error return type surfaces as-is", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddSystem(func() overflowError {
			return overflowError{limit: 99}
		}))

		laterRan := false
		require.NoError(t, s.AddSystem(func() { laterRan = true }))

		err := s.Run()
		var overflow overflowError
		require.ErrorAs(t, err, &overflow)
		assert.Equal(t, 99, overflow.limit)
		assert.False(t, laterRan)
	})

	t.Run("a nil concrete error pointer means success", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddSystem(func() *overflowError {
			return nil
		}))

		laterRan := false
		require.NoError(t, s.AddSystem(func() { laterRan = true }))

		require.NoError(t, s.Run())
		assert.True(t, laterRan)
	})

	t.Run("a panic is captured with its stack", func(t *testing.T) {
		t.Parallel()

		s := sched.New()
		require.NoError(t, s.AddSystem(func() { panic("kaboom") }))

		err := s.Run()
		var panicked sched.SystemPanicError
		require.ErrorAs(t, err, &panicked)
		assert.Equal(t, "kaboom", panicked.Panic)
		assert.NotEmpty(t, panicked.Stack)
	})

	t.Run("a run error does not poison later runs", func(t *testing.T) {
		t.Parallel()

		s := sched.New(sched.WithCheckedAccess())
		require.NoError(t, s.AddResource(Counter{}))

		fail := true
		require.NoError(t, s.AddSystem(func(c sched.ResMut[Counter]) error {
			if fail {
				return errors.New("transient authoring bug")
			}
			c.Value().Value++
			return nil
		}))

		require.Error(t, s.Run())

		// Guards were released on the error path; the next pass acquires cleanly.
		fail = false
		require.NoError(t, s.Run())
	})
}

func TestSchedulerRegistration(t *testing.T) {
	t.Parallel()

	s := sched.New()

	t.Run("nil system", func(t *testing.T) {
		assert.ErrorIs(t, s.AddSystem(nil), sched.ErrSystemNil)
	})

	t.Run("not a function", func(t *testing.T) {
		assert.ErrorIs(t, s.AddSystem(42), sched.ErrSystemNotFunction)
	})

	t.Run("variadic function", func(t *testing.T) {
		assert.ErrorIs(t, s.AddSystem(func(cs ...sched.Res[Counter]) {}), sched.ErrSystemVariadic)
	})

	t.Run("bad return", func(t *testing.T) {
		assert.ErrorIs(t, s.AddSystem(func() int { return 0 }), sched.ErrSystemBadReturn)
		assert.ErrorIs(t, s.AddSystem(func() (int, error) { return 0, nil }), sched.ErrSystemBadReturn)
	})

	t.Run("uninjectable parameter", func(t *testing.T) {
		err := s.AddSystem(func(n int) {})
		var unsupported sched.UnsupportedParameterError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, 0, unsupported.Position)
	})

	t.Run("nil resource", func(t *testing.T) {
		assert.ErrorIs(t, s.AddResource(nil), sched.ErrResourceNil)
	})
}

func TestSchedulerIntrospection(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{}))
	require.NoError(t, s.AddResource(Score{}))
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {}))

	assert.Equal(t, 1, s.SystemCount())
	assert.Equal(t, 2, s.ResourceCount())
	assert.True(t, s.HasResource(sched.KeyOf[Counter]()))
	assert.False(t, s.HasResource(sched.KeyOf[Unregistered]()))

	systems := s.Systems()
	require.Len(t, systems, 1)
	assert.NotEmpty(t, systems[0].ID())
	assert.NotEmpty(t, systems[0].Name())

	accesses := systems[0].Accesses()
	require.Len(t, accesses, 1)
	assert.Equal(t, sched.KeyOf[Counter](), accesses[0].Key)
	assert.Equal(t, sched.Read, accesses[0].Access)
}

func TestSchedulerExplain(t *testing.T) {
	t.Parallel()

	s := sched.New()
	require.NoError(t, s.AddResource(Counter{}))
	require.NoError(t, s.AddSystem(func(c sched.ResMut[Counter]) {}))
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {}))

	out := s.Explain()
	assert.Contains(t, out, "Scheduler")
	assert.Contains(t, out, "Write sched_test.Counter")
	assert.Contains(t, out, "Read sched_test.Counter")
}

func TestSchedulerLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := sched.New(sched.WithLogger(logger))
	require.NoError(t, s.AddResource(Counter{}))
	require.NoError(t, s.AddSystem(func(c sched.Res[Counter]) {}))
	require.NoError(t, s.Run())

	logs := buf.String()
	assert.Contains(t, logs, "resource added")
	assert.Contains(t, logs, "system registered")
	assert.Contains(t, logs, "system ran")

	// Log lines carry the per-system identity.
	systems := s.Systems()
	require.Len(t, systems, 1)
	assert.Contains(t, logs, systems[0].ID())
}
