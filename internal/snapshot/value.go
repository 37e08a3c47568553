package snapshot

import (
	"slices"
	"unicode/utf16"
)

// Value is a node of the canonical document tree.
//
// Floats are allowed, unlike plain canonical JSON: they are written as
// exact hexadecimal strings so that encoding never rounds.
type Value interface {
	value()
}

type (
	String string
	Int    int64
	Bool   bool
	Float  float64
	Array  []Value
	Object map[string]Value
)

func (String) value() {}
func (Int) value()    {}
func (Bool) value()   {}
func (Float) value()  {}
func (Array) value()  {}
func (Object) value() {}

// Floats builds an Array of Float values.
func Floats(xs ...float64) Array {
	out := make(Array, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}

// SortedKeys returns keys in UTF-16 code unit order.
// Go's string comparison orders by UTF-8 bytes, which differs for
// characters outside the basic multilingual plane.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
