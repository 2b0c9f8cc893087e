// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import (
	"fmt"

	"rsc.io/weenix/hw"
	"rsc.io/weenix/mm"
)

type ThreadState int

const (
	ThreadNoState ThreadState = iota
	ThreadRun
	ThreadSleep
	ThreadSleepCancellable
	ThreadExited
)

func (s ThreadState) String() string {
	switch s {
	case ThreadNoState:
		return "NoState"
	case ThreadRun:
		return "Run"
	case ThreadSleep:
		return "Sleep"
	case ThreadSleepCancellable:
		return "SleepCancellable"
	case ThreadExited:
		return "Exited"
	}
	return fmt.Sprintf("ThreadState(%d)", int(s))
}

// A Thread is a kernel thread. It belongs to one process for its whole
// life and is destroyed only when that process is reaped.
type Thread struct {
	proc      *Proc
	ctx       *hw.Context
	kstack    []byte
	state     ThreadState
	wchan     *WaitQueue // queue t is linked on, if any
	cancelled bool
	retval    int
}

// A ThreadFunc is the body of a kernel thread. Returning from it exits
// the thread with the returned value.
//
// Deferred calls in a ThreadFunc that exits through Exit, Cancel or
// DoExit run only when the thread is destroyed, off the processor;
// they must not call into the kernel.
type ThreadFunc func() int

func (t *Thread) Proc() *Proc { return t.proc }
func (t *Thread) State() ThreadState { return t.state }
func (t *Thread) Cancelled() bool { return t.cancelled }
func (t *Thread) Retval() int { return t.retval }
func (t *Thread) Queue() *WaitQueue { return t.wchan }
func (t *Thread) Context() *hw.Context { return t.ctx }

func (k *Kernel) stackPages() int {
	return 1 + k.cfg.StackSize>>mm.PageShift // extra page for the guard
}

// CreateThread creates a thread in p that will run fn once made
// runnable. It fails with ENOMEM when no control block or stack can be
// allocated.
func (k *Kernel) CreateThread(p *Proc, fn ThreadFunc) (*Thread, error) {
	t, err := k.threadSlab.Alloc()
	if err != nil {
		return nil, ENOMEM
	}
	stack, err := k.pages.AllocN(k.stackPages())
	if err != nil {
		k.threadSlab.Free(t)
		return nil, ENOMEM
	}
	t.proc = p
	t.kstack = stack
	t.state = ThreadNoState
	t.ctx = k.cpu.NewContext(func() { k.Exit(fn()) }, stack, p.pagedir)
	p.threads = append(p.threads, t)
	k.tracef("kthread_create in %d (%s)", p.Pid, p.Name)
	return t, nil
}

// Exit ends the running thread with retval. It does not return.
func (k *Kernel) Exit(retval int) {
	t := k.curthr
	if t.state == ThreadExited {
		panic("kern: thread exits twice")
	}
	t.retval = retval
	t.state = ThreadExited
	k.threadExited(retval)
	panic("kern: exited thread resumed")
}

// Cancel cancels t with retval. Cancelling the running thread exits
// it. Otherwise t is flagged, and woken if it is in a cancellable
// sleep; it must not have been cancelled before.
func (k *Kernel) Cancel(t *Thread, retval int) {
	if t == k.curthr {
		k.Exit(retval)
	}
	if t.cancelled {
		panic("kern: thread cancelled twice")
	}
	t.retval = retval
	t.cancelled = true
	if t.state == ThreadSleepCancellable {
		k.cancel(t)
	}
	k.tracef("kthread_cancel of thread in %d, state %v", t.proc.Pid, t.state)
}

// Testcancel exits the running thread with its cancellation value if
// it has been cancelled.
func (k *Kernel) Testcancel() {
	if t := k.curthr; t.cancelled {
		k.Exit(t.retval)
	}
}

// destroyThread frees t. It must have exited or never run, and must
// not be on any queue.
func (k *Kernel) destroyThread(t *Thread) {
	if t == k.curthr || t.wchan != nil {
		panic("kern: destroy of live thread")
	}
	if t.state != ThreadExited && t.state != ThreadNoState {
		panic("kern: destroy of thread in state " + t.state.String())
	}
	t.ctx.Release()
	k.pages.FreeN(t.kstack)
	t.kstack = nil
	k.threadSlab.Free(t)
}
