// Package mirror exposes a field owned by another package as a typed cell.
//
// It is a narrow escape hatch for test control: the harness uses it to seed
// and reset registrar bookkeeping between runs. Cells are unsynchronised and
// must only be touched while the owner is quiescent.
package mirror

import (
	"fmt"
	"reflect"
	"unsafe"
)

// BindingError reports an (owner, field) pair that cannot be mirrored.
type BindingError struct {
	Owner  string
	Field  string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("mirror %s.%s: %s", e.Owner, e.Field, e.Reason)
}

// Cell is a typed get/set view of a value owned elsewhere.
type Cell[T any] struct {
	get func() T
	set func(T)
}

// Get returns the current value.
func (c *Cell[T]) Get() T { return c.get() }

// Set replaces the value.
func (c *Cell[T]) Set(v T) { c.set(v) }

// Func builds a cell from explicit accessors.
func Func[T any](get func() T, set func(T)) *Cell[T] {
	return &Cell[T]{get: get, set: set}
}

// Bind mirrors the named field of owner, which must be a non-nil pointer to a
// struct. Unexported fields are allowed. The field's type must be exactly T.
func Bind[T any](owner any, field string) (*Cell[T], error) {
	ownerName := fmt.Sprintf("%T", owner)

	v := reflect.ValueOf(owner)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, &BindingError{Owner: ownerName, Field: field, Reason: "owner must be a non-nil pointer"}
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, &BindingError{Owner: ownerName, Field: field, Reason: "owner must point to a struct"}
	}

	f := v.FieldByName(field)
	if !f.IsValid() {
		return nil, &BindingError{Owner: ownerName, Field: field, Reason: "no such field"}
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	if f.Type() != want {
		return nil, &BindingError{
			Owner:  ownerName,
			Field:  field,
			Reason: fmt.Sprintf("field has type %s, not %s", f.Type(), want),
		}
	}

	ptr := (*T)(unsafe.Pointer(f.UnsafeAddr()))
	return &Cell[T]{
		get: func() T { return *ptr },
		set: func(val T) { *ptr = val },
	}, nil
}

// MustBind is Bind for wiring that cannot fail at runtime; it panics on error.
func MustBind[T any](owner any, field string) *Cell[T] {
	c, err := Bind[T](owner, field)
	if err != nil {
		panic(err)
	}
	return c
}
