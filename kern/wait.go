// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import "slices"

/*
 * Wait for a child to exit and reap it.
 * With pid -1, any dead child will do; with pid > 0, only that child,
 * which must be a child of the caller. Returns the pid and exit status
 * of the reaped child, ECHILD if there is no such child, and EINVAL for
 * other pids. Options must be 0.
 *
 * A wakeup only means some child may have died: the children are
 * scanned again every time.
 */
func (k *Kernel) Waitpid(pid, options int) (int, int, error) {
	if options != 0 {
		panic("kern: waitpid options not supported")
	}
	if pid != -1 && pid <= 0 {
		return 0, 0, EINVAL
	}
	k.sweepKilled()
	cur := k.curproc
	for {
		found := false
		for _, c := range cur.children {
			if pid != -1 && c.Pid != pid {
				continue
			}
			found = true
			if c.state == ProcDead {
				status := c.status
				k.reap(c)
				k.tracef("waitpid reaped %d status %d", c.Pid, status)
				return c.Pid, status, nil
			}
		}
		if !found {
			return 0, 0, ECHILD
		}
		k.SleepOn(&cur.wait)
	}
}

// reap frees a dead process, a child of the current one or a killed
// one: its threads, their stacks, its page directory and its control
// block.
func (k *Kernel) reap(p *Proc) {
	for _, t := range slices.Concat(p.threads, p.exited) {
		k.destroyThread(t)
	}
	p.threads = nil
	p.exited = nil
	if parent := p.parent; parent != nil {
		if i := slices.Index(parent.children, p); i >= 0 {
			parent.children = slices.Delete(parent.children, i, i+1)
		}
	}
	if i := slices.Index(k.procs, p); i >= 0 {
		k.procs = slices.Delete(k.procs, i, i+1)
	}
	k.pages.FreePagedir(p.pagedir)
	k.procSlab.Free(p)
}
