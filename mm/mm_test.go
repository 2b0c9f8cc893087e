// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mm

import (
	"strings"
	"testing"
)

func TestPages(t *testing.T) {
	a := NewPages(10)
	b, err := a.AllocN(4)
	if err != nil || len(b) != 4*PageSize {
		t.Fatalf("AllocN(4) = %d bytes, %v", len(b), err)
	}
	if _, err := a.AllocN(7); err != ErrNoMem {
		t.Errorf("AllocN(7) with 6 free = %v, want ErrNoMem", err)
	}
	c, err := a.AllocN(6)
	if err != nil {
		t.Fatalf("AllocN(6): %v", err)
	}
	if a.InUse() != 10 || a.Free() != 0 {
		t.Errorf("in use %d free %d, want 10 0", a.InUse(), a.Free())
	}
	a.FreeN(b)
	a.FreeN(c)
	if a.InUse() != 0 || a.Free() != 10 {
		t.Errorf("in use %d free %d after free, want 0 10", a.InUse(), a.Free())
	}
}

func TestPagesBadFree(t *testing.T) {
	for _, b := range [][]byte{nil, make([]byte, 100), make([]byte, 2*PageSize)} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("FreeN of %d bytes did not panic", len(b))
				}
			}()
			NewPages(1).FreeN(b)
		}()
	}
}

func TestSlab(t *testing.T) {
	type obj struct{ x int }
	s := NewSlab[obj]("obj", 2)
	o1, err := s.Alloc()
	if err != nil || o1.x != 0 {
		t.Fatalf("Alloc = %v, %v", o1, err)
	}
	o2, _ := s.Alloc()
	if _, err := s.Alloc(); err != ErrNoMem {
		t.Errorf("third Alloc = %v, want ErrNoMem", err)
	}
	if s.Live() != 2 || s.Name() != "obj" {
		t.Errorf("Live() = %d, Name() = %q", s.Live(), s.Name())
	}
	s.Free(o1)
	s.Free(o2)
	if s.Live() != 0 {
		t.Errorf("Live() = %d after free", s.Live())
	}
	defer func() {
		if e, _ := recover().(string); !strings.Contains(e, "slab obj") {
			t.Errorf("extra Free: panic %q", e)
		}
	}()
	s.Free(o1)
}

func TestUnlimitedSlab(t *testing.T) {
	s := NewSlab[int]("int", 0)
	for range 1000 {
		if _, err := s.Alloc(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPagedir(t *testing.T) {
	a := NewPages(2)
	pd1, err := a.NewPagedir()
	if err != nil {
		t.Fatal(err)
	}
	pd2, _ := a.NewPagedir()
	if _, err := a.NewPagedir(); err != ErrNoMem {
		t.Errorf("NewPagedir with no pages = %v", err)
	}
	if pd1.String() == pd2.String() {
		t.Errorf("page directories share name %v", pd1)
	}
	a.FreePagedir(pd1)
	if a.InUse() != 1 {
		t.Errorf("in use %d after FreePagedir", a.InUse())
	}
	defer func() {
		if recover() == nil {
			t.Errorf("double FreePagedir did not panic")
		}
	}()
	a.FreePagedir(pd1)
}
