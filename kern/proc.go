// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import (
	"fmt"
	"slices"

	"rsc.io/weenix/mm"
)

type ProcState int

const (
	ProcRunning ProcState = iota
	ProcDead
)

func (s ProcState) String() string {
	switch s {
	case ProcRunning:
		return "Running"
	case ProcDead:
		return "Dead"
	}
	return fmt.Sprintf("ProcState(%d)", int(s))
}

// A Proc is a process: a group of threads with a place in the process
// tree. A dead process stays a zombie until its parent reaps it.
type Proc struct {
	Pid  int
	Name string

	state    ProcState
	status   int
	parent   *Proc
	waiter   *Proc // parent before a kill; woken when p exits
	children []*Proc
	threads  []*Thread // live threads
	exited   []*Thread // exited threads, freed by the reaper
	wait     WaitQueue // parent sleeps here in Waitpid
	pagedir  *mm.Pagedir
}

func (p *Proc) State() ProcState { return p.state }
func (p *Proc) Status() int { return p.status }
func (p *Proc) Parent() *Proc { return p.parent }
func (p *Proc) Pagedir() *mm.Pagedir { return p.pagedir }

// Children returns a copy of p's children.
func (p *Proc) Children() []*Proc { return slices.Clone(p.children) }

// Threads returns a copy of p's live threads.
func (p *Proc) Threads() []*Thread { return slices.Clone(p.threads) }

func (p *Proc) String() string {
	return fmt.Sprintf("%d (%s)", p.Pid, p.Name)
}

/*
 * Find a pid not used by any registered process, starting after the
 * last one handed out and wrapping around. Returns -1 when every pid
 * is in use. Worst case O(n^2) in the number of processes; O(n) as
 * long as pids do not wrap.
 */
func (k *Kernel) getpid() int {
	inuse := slices.Concat(k.procs, k.killed)
	pid := k.nextPid
Retry:
	for _, p := range inuse {
		if p.Pid == pid {
			if pid = (pid + 1) % k.cfg.MaxProcs; pid == k.nextPid {
				return -1
			}
			goto Retry
		}
	}
	k.nextPid = (pid + 1) % k.cfg.MaxProcs
	return pid
}

// CreateProc creates a running process with no threads, as a child of
// the current process. The first process created is idle and has no
// parent; the one that gets pid 1 is init. CreateProc fails with
// EAGAIN when the pid space is exhausted and ENOMEM when memory is.
func (k *Kernel) CreateProc(name string) (*Proc, error) {
	k.sweepKilled()
	pid := k.getpid()
	if pid < 0 {
		return nil, EAGAIN
	}
	p, err := k.procSlab.Alloc()
	if err != nil {
		return nil, ENOMEM
	}
	pd, err := k.pages.NewPagedir()
	if err != nil {
		k.procSlab.Free(p)
		return nil, ENOMEM
	}
	p.Pid = pid
	p.Name = name
	p.pagedir = pd
	p.state = ProcRunning
	p.wait.Init()

	if k.idle == nil {
		k.idle = p
	} else {
		p.parent = k.curproc
		k.curproc.children = append(k.curproc.children, p)
	}
	k.procs = append(k.procs, p)
	if pid == PidInit {
		k.init = p
	}
	k.tracef("proc_create %v", p)
	return p, nil
}

// Lookup returns the registered process with the given pid, or nil.
func (k *Kernel) Lookup(pid int) *Proc {
	for _, p := range k.procs {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

// Procs returns the registered processes, live and zombie.
func (k *Kernel) Procs() []*Proc { return slices.Clone(k.procs) }

/*
 * The running thread has exited. Unless other threads of the process
 * are still alive, the process exits with it.
 */
func (k *Kernel) threadExited(retval int) {
	t := k.curthr
	p := t.proc
	i := slices.Index(p.threads, t)
	if i < 0 {
		panic("kern: exiting thread not in its process")
	}
	p.threads = slices.Delete(p.threads, i, i+1)
	p.exited = append(p.exited, t)
	if len(p.threads) > 0 {
		k.Switch()
		return
	}
	k.cleanup(retval)
}

/*
 * Release what the process can release itself.
 * Enter zombie state.
 * Wake up the parent, and give the children to init.
 * The parent frees the rest in Waitpid: a thread cannot free the stack
 * it is running on.
 */
func (k *Kernel) cleanup(status int) {
	p := k.curproc
	p.state = ProcDead
	p.status = status
	k.tracef("proc_cleanup status %d", status)

	if p.parent != nil {
		k.WakeupOn(&p.parent.wait)
	} else if p.waiter != nil {
		k.WakeupOn(&p.waiter.wait)
		p.waiter = nil
	}
	k.orphan(p)
	k.Switch()
}

// orphan gives p's children to init, waking init if any of them is
// already a zombie.
func (k *Kernel) orphan(p *Proc) {
	if p.Pid == PidIdle || p == k.init || len(p.children) == 0 {
		return
	}
	zombie := false
	for _, c := range p.children {
		c.parent = k.init
		k.init.children = append(k.init.children, c)
		if c.state == ProcDead {
			zombie = true
		}
	}
	p.children = nil
	if zombie {
		k.WakeupOn(&k.init.wait)
	}
}

// stranded reports whether no thread of p can run again: each one
// either never started or has exited.
func stranded(p *Proc) bool {
	for _, t := range p.threads {
		if t.state != ThreadNoState || t.wchan != nil {
			return false
		}
	}
	return true
}

// finishKilled does for a stranded killed process what its exiting
// threads would have done, then frees it.
func (k *Kernel) finishKilled(p *Proc) {
	if p.waiter != nil {
		k.WakeupOn(&p.waiter.wait)
		p.waiter = nil
	}
	k.orphan(p)
	k.reap(p)
}

// sweepKilled frees killed processes whose threads are all done.
func (k *Kernel) sweepKilled() {
	k.killed = slices.DeleteFunc(k.killed, func(p *Proc) bool {
		if p == k.curproc || !stranded(p) {
			return false
		}
		k.finishKilled(p)
		return true
	})
}

// Kill stops p from running again by cancelling all of its threads.
// Killing the current process is DoExit.
//
// Kill does not reparent p's children or wake anyone: that happens
// when p's cancelled threads exit on their own. A killed process
// keeps its pid and memory until then; the next CreateProc or Waitpid
// after that frees them. A process with no thread that could ever run
// again is finished and freed at once.
func (k *Kernel) Kill(p *Proc, status int) {
	if p == k.curproc {
		k.DoExit(status)
	}
	if p.state == ProcDead {
		panic("kern: kill of dead process")
	}
	k.tracef("proc_kill %v", p)
	for _, t := range slices.Clone(p.threads) {
		if !t.cancelled {
			k.Cancel(t, status)
		}
	}
	if parent := p.parent; parent != nil {
		if i := slices.Index(parent.children, p); i >= 0 {
			parent.children = slices.Delete(parent.children, i, i+1)
		}
	}
	if i := slices.Index(k.procs, p); i >= 0 {
		k.procs = slices.Delete(k.procs, i, i+1)
	}
	p.waiter = p.parent
	p.parent = nil
	p.status = status
	p.state = ProcDead
	if stranded(p) {
		k.finishKilled(p)
		return
	}
	k.killed = append(k.killed, p)
}

// KillAll kills every process except idle and processes already dead.
// The caller is killed last, so KillAll returns only when called from
// idle.
func (k *Kernel) KillAll() {
	for _, p := range slices.Clone(k.procs) {
		if p == k.idle || p == k.curproc || p.state == ProcDead {
			continue
		}
		k.Kill(p, 0)
	}
	if k.curproc != k.idle {
		k.Kill(k.curproc, 0)
	}
}

// DoExit exits the running thread, and with it the process, with
// status. It does not return.
func (k *Kernel) DoExit(status int) {
	k.Exit(status)
}
