package sched

import (
	"io"
	"log/slog"
)

// Scheduler owns the resource store and the ordered collection of systems.
// Execution is strictly single-threaded: Run is a synchronous pass over the
// systems in registration order, once each, with no reordering and no
// parallel dispatch. That constraint is what makes the unchecked access
// strategy sound without any thread-safety primitives.
type Scheduler struct {
	store    *Store
	systems  []*System
	logger   *slog.Logger
	strategy AccessStrategy
}

// Option configures a Scheduler.
type Option interface {
	applyOption(*Scheduler)
}

type optionFunc func(*Scheduler)

func (f optionFunc) applyOption(s *Scheduler) {
	f(s)
}

// WithLogger routes registration and run events to logger. Registration
// and run events log at Debug, failures at Error.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	})
}

// WithCheckedAccess switches the store to the checked strategy: every
// acquisition is validated against the cell's live borrows at run time
// instead of relying on the registration-time proof alone.
func WithCheckedAccess() Option {
	return optionFunc(func(s *Scheduler) {
		s.strategy = AccessChecked
	})
}

// New returns an empty scheduler. The default access strategy is unchecked,
// which is sound because AddSystem is the only way to register a system and
// it validates every access plan before the system can ever run.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		strategy: AccessUnchecked,
	}

	for _, opt := range opts {
		if opt != nil {
			opt.applyOption(s)
		}
	}

	s.store = NewStore(s.strategy)
	return s
}

// AddResource stores value as the sole resource of its dynamic type,
// silently replacing any previous value of the same type. Last write wins.
func (s *Scheduler) AddResource(value any) error {
	if value == nil {
		return ErrResourceNil
	}

	key := s.store.Insert(value)
	s.logger.Debug("resource added", "type", key.String())
	return nil
}

// AddSystem registers fn to run on every scheduling pass. fn may be any
// non-variadic function whose parameters are Res, ResMut, or In groups, and
// whose returns are none or a single error. The access plan is computed and
// validated here, once; a system whose parameters conflict with each other
// is rejected and never registered.
func (s *Scheduler) AddSystem(fn any) error {
	sys, err := newSystem(fn)
	if err != nil {
		s.logger.Error("system rejected", "error", err)
		return err
	}

	s.systems = append(s.systems, sys)
	s.logger.Debug("system registered",
		"system", sys.Name(),
		"id", sys.ID(),
		"accesses", sys.accesses.String(),
	)
	return nil
}

// Run executes every registered system once, in registration order. Each
// system retrieves fresh views of its declared resources from the store for
// the duration of its call. The pass aborts on the first failure - a
// missing resource, a checked-mode access conflict, a system error, or a
// system panic - and returns it; later systems do not execute in that pass.
//
// Run is idempotent and repeatable. Resources are not reset between runs.
func (s *Scheduler) Run() error {
	for _, sys := range s.systems {
		if err := sys.run(s.store); err != nil {
			s.logger.Error("run aborted", "system", sys.Name(), "id", sys.ID(), "error", err)
			return err
		}

		s.logger.Debug("system ran", "system", sys.Name(), "id", sys.ID())
	}

	return nil
}

// Systems returns the registered systems in execution order.
func (s *Scheduler) Systems() []*System {
	out := make([]*System, len(s.systems))
	copy(out, s.systems)
	return out
}

// SystemCount returns the number of registered systems.
func (s *Scheduler) SystemCount() int {
	return len(s.systems)
}

// ResourceCount returns the number of distinct resource types stored.
func (s *Scheduler) ResourceCount() int {
	return s.store.Len()
}

// HasResource reports whether a resource of the keyed type is present.
func (s *Scheduler) HasResource(key TypeKey) bool {
	return s.store.Contains(key)
}
