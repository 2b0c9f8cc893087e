// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mm provides the memory services the process code consumes:
// a counted page allocator, fixed-size object slabs and page
// directories. None of it is safe for concurrent use; the kernel only
// calls it from the context holding the processor.
package mm

import "errors"

const (
	PageShift = 12
	PageSize  = 1 << PageShift
)

var ErrNoMem = errors.New("out of memory")

// Pages is a physical page allocator with a fixed number of pages.
type Pages struct {
	total int
	inuse int
	npdir int
}

// NewPages returns an allocator managing n pages.
func NewPages(n int) *Pages {
	return &Pages{total: n}
}

// AllocN allocates n contiguous pages.
func (a *Pages) AllocN(n int) ([]byte, error) {
	if n <= 0 {
		panic("mm: bad page count")
	}
	if a.inuse+n > a.total {
		return nil, ErrNoMem
	}
	a.inuse += n
	return make([]byte, n<<PageShift), nil
}

// FreeN frees pages returned by AllocN.
func (a *Pages) FreeN(b []byte) {
	n := len(b) >> PageShift
	if n == 0 || len(b)&(PageSize-1) != 0 || n > a.inuse {
		panic("mm: bad page free")
	}
	a.inuse -= n
}

// InUse returns the number of allocated pages.
func (a *Pages) InUse() int { return a.inuse }

// Free returns the number of unallocated pages.
func (a *Pages) Free() int { return a.total - a.inuse }
