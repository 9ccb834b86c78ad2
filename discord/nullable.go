package discord

import (
	"bytes"

	"github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var null = []byte("null")

// Nullable is a field an update can omit, set, or clear with an explicit null.
// Set reports that the field was present; a null leaves Value at its zero
// value and sets Null.
type Nullable[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null field.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Set: true}
}

// Null returns a present field that clears the value it patches.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true, Null: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	var zero T
	n.Value = zero
	n.Set = true
	n.Null = bytes.Equal(bytes.TrimSpace(data), null)
	if n.Null {
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// MarshalJSON writes null for absent fields too, as a struct field cannot be
// omitted.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Null {
		return null, nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value, or nil when the field is absent or null.
func (n Nullable[T]) Ptr() *T {
	if !n.Set || n.Null {
		return nil
	}
	v := n.Value
	return &v
}

// patch writes the field into dst when it was present.
func (n Nullable[T]) patch(dst *T) {
	if n.Set {
		*dst = n.Value
	}
}
