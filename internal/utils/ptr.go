package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

// Clone copies the pointed-to value so the result does not alias v.
func Clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	return Ptr(*v)
}

func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Equal reports whether both pointers are set and hold the same value.
func Equal[T comparable](a, b *T) bool {
	return a != nil && b != nil && *a == *b
}

// Returns nil on an empty or all whitespace string
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
