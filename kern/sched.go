// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import "rsc.io/weenix/hw"

// disable masks all interrupts and returns the previous level,
// for restore.
func (k *Kernel) disable() hw.IPL {
	ipl := k.cpu.IPL()
	k.cpu.SetIPL(hw.IPLHigh)
	return ipl
}

func (k *Kernel) restore(ipl hw.IPL) {
	k.cpu.SetIPL(ipl)
}

// MakeRunnable puts t at the tail of the run queue.
// It may be called from interrupt handlers.
func (k *Kernel) MakeRunnable(t *Thread) {
	ipl := k.disable()
	defer k.restore(ipl)
	t.state = ThreadRun
	k.runq.enqueue(t)
}

/*
 * Give the processor to the thread at the head of the run queue.
 * The caller has already put itself wherever it belongs: on a wait
 * queue, back on the run queue, or nowhere if it is exiting.
 * If no thread is runnable, idle with interrupts enabled until a
 * handler makes one runnable.
 */
func (k *Kernel) Switch() {
	ipl := k.disable()
	for k.runq.Empty() {
		k.cpu.SetIPL(hw.IPLLow)
		k.cpu.Wait()
		k.cpu.SetIPL(hw.IPLHigh)
	}
	old := k.curthr
	k.curthr = k.runq.dequeue()
	k.curproc = k.curthr.proc
	k.restore(ipl)
	k.cpu.Switch(old.ctx, k.curthr.ctx)
}

// Yield lets every other runnable thread run before the caller
// continues.
func (k *Kernel) Yield() {
	k.MakeRunnable(k.curthr)
	k.Switch()
}

// SleepOn blocks the running thread on q until a wakeup.
// The sleep cannot be cancelled.
func (k *Kernel) SleepOn(q *WaitQueue) {
	t := k.curthr
	if t.state == ThreadSleep {
		panic("kern: sleeping thread sleeps")
	}
	ipl := k.disable()
	t.state = ThreadSleep
	q.enqueue(t)
	k.restore(ipl)
	k.Switch()
}

// CancellableSleepOn is like SleepOn, but Cancel wakes the thread
// early. It returns EINTR if the thread was cancelled by the time it
// runs again. Cancellation is only examined after the sleep: a thread
// cancelled earlier still sleeps.
func (k *Kernel) CancellableSleepOn(q *WaitQueue) error {
	t := k.curthr
	if t.state == ThreadSleepCancellable {
		panic("kern: sleeping thread sleeps")
	}
	ipl := k.disable()
	t.state = ThreadSleepCancellable
	q.enqueue(t)
	k.restore(ipl)
	k.Switch()
	if t.cancelled {
		return EINTR
	}
	return nil
}

// WakeupOn makes the longest sleeper on q runnable and returns it,
// or returns nil if q is empty.
func (k *Kernel) WakeupOn(q *WaitQueue) *Thread {
	ipl := k.disable()
	defer k.restore(ipl)
	t := q.dequeue()
	if t != nil {
		k.MakeRunnable(t)
	}
	return t
}

// BroadcastOn makes every sleeper on q runnable, in queue order.
func (k *Kernel) BroadcastOn(q *WaitQueue) {
	ipl := k.disable()
	defer k.restore(ipl)
	for t := q.dequeue(); t != nil; t = q.dequeue() {
		k.MakeRunnable(t)
	}
}

/*
 * Mark t cancelled. A thread in a cancellable sleep is pulled off its
 * wait queue and made runnable; its sleep returns EINTR. Any other
 * thread only has the flag set and finds out later.
 * An uncancellable sleep must never be cut short.
 */
func (k *Kernel) cancel(t *Thread) {
	if t.state == ThreadSleep {
		panic("kern: cancel of uncancellable sleep")
	}
	ipl := k.disable()
	defer k.restore(ipl)
	t.cancelled = true
	if t.state == ThreadSleepCancellable {
		t.wchan.remove(t)
		k.MakeRunnable(t)
	}
}
