// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import "slices"

// A WaitQueue is a FIFO queue of threads. The run queue is one;
// every other queue holds threads blocked on some event.
//
// The unexported methods must be called with the IPL at hw.IPLHigh,
// since interrupt handlers wake threads too.
type WaitQueue struct {
	threads []*Thread
}

func (q *WaitQueue) Init() {
	q.threads = nil
}

func (q *WaitQueue) Empty() bool { return len(q.threads) == 0 }

// Len returns the number of queued threads.
func (q *WaitQueue) Len() int { return len(q.threads) }

func (q *WaitQueue) enqueue(t *Thread) {
	if t.wchan != nil {
		panic("kern: enqueue of queued thread")
	}
	q.threads = append(q.threads, t)
	t.wchan = q
}

// dequeue removes and returns the thread at the head of q, or nil.
func (q *WaitQueue) dequeue() *Thread {
	if len(q.threads) == 0 {
		return nil
	}
	t := q.threads[0]
	q.threads[0] = nil
	q.threads = q.threads[1:]
	t.wchan = nil
	return t
}

// remove takes t out of q wherever it is queued.
func (q *WaitQueue) remove(t *Thread) {
	i := slices.Index(q.threads, t)
	if i < 0 || t.wchan != q {
		panic("kern: remove of thread not on queue")
	}
	q.threads = slices.Delete(q.threads, i, i+1)
	t.wchan = nil
}
