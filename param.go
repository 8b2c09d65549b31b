package sched

import (
	"reflect"

	"go.uber.org/dig"
)

// In marks a struct as a parameter group. When a system takes a struct
// parameter with embedded In, every exported field of that struct is
// retrieved as if it were a parameter of the system itself, and the
// fields' accesses join the system's access plan.
//
// Groups may nest: a field may itself be a struct embedding In.
//
// The In marker must be embedded anonymously:
//
//	type MovementParams struct {
//	    sched.In  // ✓ correct - anonymous embedding
//
//	    Positions  sched.ResMut[Positions]
//	    Velocities sched.Res[Velocities]
//	}
type In = dig.In

// Parameter is the capability every injectable parameter kind implements:
// declare the accesses it needs independently of any store, then produce a
// live value from a store. Its methods are unexported so that only types in
// this package can hand out resource views; system authors compose Res,
// ResMut, and In groups instead.
type Parameter interface {
	// describeAccess reports the accesses the parameter needs. It is
	// static: callable on the zero value, before any store exists.
	describeAccess() AccessSet

	// retrieve produces the live parameter value from the store, together
	// with the borrow guard to release after the invocation (nil under the
	// unchecked strategy).
	retrieve(store *Store) (reflect.Value, *borrowGuard, error)
}

var parameterType = reflect.TypeOf((*Parameter)(nil)).Elem()

// Res is a read-only view of the resource of type T. The zero Res is only
// meaningful as a declaration in a system signature; live values are
// produced by the scheduler for the duration of one invocation and must not
// be retained past it.
type Res[T any] struct {
	value *T
}

// Value returns the current resource value.
func (r Res[T]) Value() T {
	return *r.value
}

func (Res[T]) describeAccess() AccessSet {
	return AccessSet{{Key: KeyOf[T](), Access: Read}}
}

func (Res[T]) retrieve(store *Store) (reflect.Value, *borrowGuard, error) {
	ptr, guard, err := store.acquire(KeyOf[T](), Read)
	if err != nil {
		return reflect.Value{}, nil, err
	}

	return reflect.ValueOf(Res[T]{value: ptr.Interface().(*T)}), guard, nil
}

// ResMut is the exclusive, mutable view of the resource of type T. Like
// Res, live values are scoped to a single invocation.
type ResMut[T any] struct {
	value *T
}

// Value returns a pointer to the resource. Mutations through it are visible
// to every later system in the same run and to subsequent runs.
func (r ResMut[T]) Value() *T {
	return r.value
}

// Set replaces the resource value in place.
func (r ResMut[T]) Set(v T) {
	*r.value = v
}

func (ResMut[T]) describeAccess() AccessSet {
	return AccessSet{{Key: KeyOf[T](), Access: Write}}
}

func (ResMut[T]) retrieve(store *Store) (reflect.Value, *borrowGuard, error) {
	ptr, guard, err := store.acquire(KeyOf[T](), Write)
	if err != nil {
		return reflect.Value{}, nil, err
	}

	return reflect.ValueOf(ResMut[T]{value: ptr.Interface().(*T)}), guard, nil
}

// paramSource is one analyzed slot of a system signature: either a leaf
// Parameter or an In group recursing into its fields. Sources are built
// once at registration; retrieval re-derives live views from the store on
// every run with no re-validation.
type paramSource interface {
	describe() AccessSet
	build(store *Store) (reflect.Value, []*borrowGuard, error)
}

// analyzeParameter maps one slot of a system signature to its source.
// position is the index of the top-level parameter; group members keep the
// position of the group that contains them.
func analyzeParameter(t reflect.Type, position int) (paramSource, error) {
	if t.Implements(parameterType) {
		proto := reflect.Zero(t).Interface().(Parameter)
		return &leafSource{proto: proto, position: position}, nil
	}

	info := globalTypeCache.getInfo(t)
	if info.IsStruct && info.HasInField {
		return analyzeGroup(t, info, position)
	}

	return nil, UnsupportedParameterError{Type: t, Position: position}
}

func analyzeGroup(t reflect.Type, info *typeInfo, position int) (paramSource, error) {
	group := &groupSource{typ: t}
	for _, field := range info.Fields {
		if field.IsAnonymous && isInType(field.Type) {
			continue
		}

		if !field.IsExported {
			return nil, UnsupportedParameterError{Type: field.Type, Position: position, Field: field.Name}
		}

		source, err := analyzeParameter(field.Type, position)
		if err != nil {
			return nil, err
		}

		group.fields = append(group.fields, groupField{index: field.Index, source: source})
	}

	return group, nil
}

// leafSource wraps a single Parameter.
type leafSource struct {
	proto    Parameter
	position int
}

func (l *leafSource) describe() AccessSet {
	set := l.proto.describeAccess()
	for i := range set {
		set[i].Position = l.position
	}

	return set
}

func (l *leafSource) build(store *Store) (reflect.Value, []*borrowGuard, error) {
	value, guard, err := l.proto.retrieve(store)
	if err != nil {
		return reflect.Value{}, nil, err
	}

	if guard == nil {
		return value, nil, nil
	}

	return value, []*borrowGuard{guard}, nil
}

// groupSource assembles a struct parameter from its member sources,
// positionally. No validation happens here; the members' accesses were
// merged into the system's AccessSet at registration.
type groupSource struct {
	typ    reflect.Type
	fields []groupField
}

type groupField struct {
	index  int
	source paramSource
}

func (g *groupSource) describe() AccessSet {
	var set AccessSet
	for _, field := range g.fields {
		set = append(set, field.source.describe()...)
	}

	return set
}

func (g *groupSource) build(store *Store) (reflect.Value, []*borrowGuard, error) {
	value := reflect.New(g.typ).Elem()

	var guards []*borrowGuard
	for _, field := range g.fields {
		fieldValue, acquired, err := field.source.build(store)
		if err != nil {
			releaseAll(guards)
			return reflect.Value{}, nil, err
		}

		guards = append(guards, acquired...)
		value.Field(field.index).Set(fieldValue)
	}

	return value, guards, nil
}
