// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mm

// A Slab hands out control blocks of one type, up to a fixed count.
type Slab[T any] struct {
	name string
	max  int // 0 means unlimited
	live int
}

// NewSlab returns a slab named name holding at most max objects.
func NewSlab[T any](name string, max int) *Slab[T] {
	return &Slab[T]{name: name, max: max}
}

// Alloc returns a zeroed object.
func (s *Slab[T]) Alloc() (*T, error) {
	if s.max > 0 && s.live >= s.max {
		return nil, ErrNoMem
	}
	s.live++
	return new(T), nil
}

// Free returns obj to the slab.
func (s *Slab[T]) Free(obj *T) {
	if obj == nil || s.live == 0 {
		panic("mm: bad free in slab " + s.name)
	}
	s.live--
}

func (s *Slab[T]) Name() string { return s.name }

// Live returns the number of allocated objects.
func (s *Slab[T]) Live() int { return s.live }
