// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

// A Mutex is a sleeping lock between kernel threads. It is not
// reentrant, and must never be used from an interrupt handler.
//
// Unlock hands the mutex straight to the longest waiter, so waiters
// acquire it in the order they blocked.
type Mutex struct {
	k      *Kernel
	waitq  WaitQueue
	holder *Thread
}

// NewMutex returns an unlocked mutex.
func (k *Kernel) NewMutex() *Mutex {
	m := new(Mutex)
	m.Init(k)
	return m
}

// Init initializes m as an unlocked mutex of k.
func (m *Mutex) Init(k *Kernel) {
	m.k = k
	m.waitq.Init()
	m.holder = nil
}

// Holder returns the thread holding m, or nil.
func (m *Mutex) Holder() *Thread { return m.holder }

// Waiters returns the number of threads blocked on m.
func (m *Mutex) Waiters() int { return m.waitq.Len() }

// Lock acquires m, sleeping uncancellably while another thread holds it.
func (m *Mutex) Lock() {
	cur := m.k.curthr
	if m.holder == cur {
		panic("kern: mutex relocked by holder")
	}
	if m.holder == nil {
		m.holder = cur
		return
	}
	m.k.SleepOn(&m.waitq)
	if m.holder != cur {
		panic("kern: mutex woke without ownership")
	}
}

// LockCancellable is like Lock but sleeps cancellably. It returns EINTR
// if the thread was cancelled before it was handed the mutex; the
// caller then does not hold it.
func (m *Mutex) LockCancellable() error {
	cur := m.k.curthr
	if m.holder == cur {
		panic("kern: mutex relocked by holder")
	}
	if m.holder == nil {
		m.holder = cur
		return nil
	}
	err := m.k.CancellableSleepOn(&m.waitq)
	if m.holder == cur {
		// Handed over before the cancel arrived.
		return nil
	}
	if err == nil {
		panic("kern: mutex woke without ownership")
	}
	return err
}

// Unlock releases m, passing it to the longest waiter if there is one.
func (m *Mutex) Unlock() {
	if m.holder != m.k.curthr {
		panic("kern: unlock of mutex not held")
	}
	m.holder = m.k.WakeupOn(&m.waitq)
}
