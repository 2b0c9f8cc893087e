// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import (
	"fmt"
	"io"
)

// Info prints a description of p for the debugging shell.
func (k *Kernel) Info(w io.Writer, p *Proc) {
	fmt.Fprintf(w, "pid:          %d\n", p.Pid)
	fmt.Fprintf(w, "name:         %s\n", p.Name)
	if p.parent != nil {
		fmt.Fprintf(w, "parent:       %d (%s)\n", p.parent.Pid, p.parent.Name)
	} else {
		fmt.Fprintf(w, "parent:       -\n")
	}
	fmt.Fprintf(w, "thread count: %d\n", len(p.threads))
	if len(p.children) == 0 {
		fmt.Fprintf(w, "children:     -\n")
	} else {
		fmt.Fprintf(w, "children:\n")
	}
	for _, c := range p.children {
		fmt.Fprintf(w, "     %d (%s)\n", c.Pid, c.Name)
	}
	fmt.Fprintf(w, "status:       %d\n", p.status)
	fmt.Fprintf(w, "state:        %v\n", p.state)
	if k.cfg.Dirpath != nil {
		cwd, err := k.cfg.Dirpath(p)
		if err != nil {
			cwd = "-"
		}
		fmt.Fprintf(w, "cwd:          %s\n", cwd)
	}
}

// ListInfo prints the process table.
func (k *Kernel) ListInfo(w io.Writer) {
	fmt.Fprintf(w, "%5s %-13s %-18s %s\n", "PID", "NAME", "PARENT", "STATE")
	for _, p := range k.procs {
		parent := "  -"
		if p.parent != nil {
			parent = fmt.Sprintf("%3d (%s)", p.parent.Pid, p.parent.Name)
		}
		fmt.Fprintf(w, " %3d  %-13s %-18s %v\n", p.Pid, p.Name, parent, p.state)
	}
}
