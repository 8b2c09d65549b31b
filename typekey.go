package sched

import (
	"reflect"
	"strings"
	"sync"
)

// TypeKey is the process-stable identity of a resource type, used as the
// store's map key. Two keys compare equal exactly when they denote the same
// Go type.
type TypeKey struct {
	rtype reflect.Type
}

// KeyOf returns the TypeKey for T.
func KeyOf[T any]() TypeKey {
	return keyOf(reflect.TypeOf((*T)(nil)).Elem())
}

func keyOf(t reflect.Type) TypeKey {
	return TypeKey{rtype: t}
}

// Type returns the reflect.Type the key denotes, or nil for the zero key.
func (k TypeKey) Type() reflect.Type {
	return k.rtype
}

// IsZero reports whether the key denotes no type at all.
func (k TypeKey) IsZero() bool {
	return k.rtype == nil
}

// String returns a short, readable name for the keyed type.
func (k TypeKey) String() string {
	if k.rtype == nil {
		return "<nil>"
	}
	return globalTypeCache.getInfo(k.rtype).formattedName()
}

// typeCache provides a cache for reflection type information so repeated
// analysis of the same parameter and resource types stays cheap.
type typeCache struct {
	cache sync.Map // map[reflect.Type]*typeInfo
}

// typeInfo holds pre-computed reflection information about a type.
type typeInfo struct {
	Type    reflect.Type
	Kind    reflect.Kind
	PkgPath string
	Name    string

	// For structs
	IsStruct   bool
	Fields     []fieldInfo
	HasInField bool // has embedded dig.In, marking a parameter group

	formatted     string
	formattedOnce sync.Once
}

// fieldInfo holds information about a struct field.
type fieldInfo struct {
	Index       int
	Name        string
	Type        reflect.Type
	IsExported  bool
	IsAnonymous bool
}

// globalTypeCache is the singleton type cache used throughout the library.
var globalTypeCache = &typeCache{}

// getInfo returns cached type information or creates it if not present.
func (tc *typeCache) getInfo(t reflect.Type) *typeInfo {
	if t == nil {
		return nil
	}

	if cached, ok := tc.cache.Load(t); ok {
		return cached.(*typeInfo)
	}

	info := tc.createInfo(t)
	actual, _ := tc.cache.LoadOrStore(t, info)
	return actual.(*typeInfo)
}

// createInfo creates a new typeInfo for the given type.
func (tc *typeCache) createInfo(t reflect.Type) *typeInfo {
	info := &typeInfo{
		Type:    t,
		Kind:    t.Kind(),
		PkgPath: t.PkgPath(),
		Name:    t.Name(),
	}

	info.IsStruct = info.Kind == reflect.Struct
	if info.IsStruct {
		info.Fields = make([]fieldInfo, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			info.Fields = append(info.Fields, fieldInfo{
				Index:       i,
				Name:        field.Name,
				Type:        field.Type,
				IsExported:  field.IsExported(),
				IsAnonymous: field.Anonymous,
			})

			if field.Anonymous && isInType(field.Type) {
				info.HasInField = true
			}
		}
	}

	return info
}

// isInType reports whether t is the dig.In marker type.
func isInType(t reflect.Type) bool {
	if t == nil {
		return false
	}

	return t.Name() == "In" && strings.HasSuffix(t.PkgPath(), "dig")
}

func (info *typeInfo) formattedName() string {
	info.formattedOnce.Do(func() {
		info.formatted = formatType(info.Type)
	})

	return info.formatted
}
