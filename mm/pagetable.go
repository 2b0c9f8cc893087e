// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mm

import "fmt"

// A Pagedir is the handle of one address space. It occupies a page.
type Pagedir struct {
	id   int
	page []byte
}

// NewPagedir allocates a fresh, empty page directory.
func (a *Pages) NewPagedir() (*Pagedir, error) {
	page, err := a.AllocN(1)
	if err != nil {
		return nil, err
	}
	a.npdir++
	return &Pagedir{id: a.npdir, page: page}, nil
}

// FreePagedir releases pd's page.
func (a *Pages) FreePagedir(pd *Pagedir) {
	if pd.page == nil {
		panic("mm: page directory freed twice")
	}
	a.FreeN(pd.page)
	pd.page = nil
}

func (pd *Pagedir) String() string {
	return fmt.Sprintf("pagedir#%d", pd.id)
}
