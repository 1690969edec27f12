package gpudriven

import "unsafe"

// Column is a typed, fixed-length view over memory owned by the
// provider. It never owns the backing storage; every read or write is
// gated by the SafetyScope attached at construction. Element types must
// be fixed-width (32-bit ints, 32-bit floats, mgl32 vectors and
// matrices, byte-backed bools, or structs composed of those).
type Column[T any] struct {
	scope *SafetyScope
	data  []T
}

// MakeColumn wraps count elements of externally allocated memory
// starting at ptr. The caller guarantees the region stays alive for the
// lifetime of the scope.
func MakeColumn[T any](ptr unsafe.Pointer, count int, scope *SafetyScope) Column[T] {
	if count == 0 || ptr == nil {
		return Column[T]{scope: scope}
	}
	return Column[T]{scope: scope, data: unsafe.Slice((*T)(ptr), count)}
}

// columnOf borrows an existing provider slice without copying.
func columnOf[T any](data []T, scope *SafetyScope) Column[T] {
	return Column[T]{scope: scope, data: data}
}

// Len is safe to call at any time; it reads no element data.
func (c Column[T]) Len() int {
	return len(c.data)
}

func (c Column[T]) Get(i int) T {
	c.scope.check()
	return c.data[i]
}

func (c Column[T]) Set(i int, v T) {
	c.scope.check()
	c.data[i] = v
}

// Slice exposes the backing elements directly. The returned slice is
// only valid until the scope is released; callers must copy anything
// they retain.
func (c Column[T]) Slice() []T {
	c.scope.check()
	return c.data
}
