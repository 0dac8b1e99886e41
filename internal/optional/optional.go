// Package optional contains safer code to handle optional values.
package optional

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/ooni/btls/internal/runtimex"
)

// Value is an optional value. The zero value of this structure
// is equivalent to the one you get when calling [None].
type Value[T any] struct {
	// indirect is the indirect pointer to the value.
	indirect *T
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{nil}
}

// Some constructs a some value unless T is a pointer and points to
// nil, in which case [Some] is equivalent to [None].
func Some[T any](value T) Value[T] {
	v := Value[T]{}
	if !isNil(value) {
		v.indirect = &value
	}
	return v
}

// isNil returns whether the given value is nil.
func isNil[T any](value T) bool {
	refl := reflect.ValueOf(value)
	switch refl.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return refl.IsNil()
	case reflect.Invalid:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler. Note that a `null` JSON
// value always leads to an empty Value.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`null`)) {
		v.indirect = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	v.indirect = &value
	return nil
}

// MarshalJSON implements json.Marshaler. An empty value serializes
// to `null` and otherwise we serialize the underluing value.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.indirect == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(*v.indirect)
}

// IsNone returns whether this [Value] is empty.
func (v Value[T]) IsNone() bool {
	return v.indirect == nil
}

// Unwrap returns the underlying value or panics. In case of
// panic, the value passed to panic is an error.
func (v Value[T]) Unwrap() T {
	runtimex.Assert(!v.IsNone(), "is none")
	return *v.indirect
}

// UnwrapOr returns the fallback if the [Value] is empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.IsNone() {
		return fallback
	}
	return v.Unwrap()
}
