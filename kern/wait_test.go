// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import (
	"slices"
	"testing"
)

func TestWaitAnyChild(t *testing.T) {
	var pids, reaped []int
	boot(t, Config{}, func(k *Kernel) int {
		for range 5 {
			p := spawn(k, "child", func() int { return 0 })
			pids = append(pids, p.Pid)
		}
		for range 5 {
			pid, status, err := k.Waitpid(-1, 0)
			if err != nil || status != 0 {
				t.Errorf("Waitpid = %d, %d, %v", pid, status, err)
			}
			reaped = append(reaped, pid)
		}
		if _, _, err := k.Waitpid(-1, 0); err != ECHILD {
			t.Errorf("sixth Waitpid = %v, want ECHILD", err)
		}
		if n := len(k.CurProc().Children()); n != 0 {
			t.Errorf("%d children left", n)
		}
		return 0
	})
	slices.Sort(reaped)
	if !slices.Equal(reaped, pids) {
		t.Errorf("reaped %v, want %v", reaped, pids)
	}
}

func TestWaitSpecificChild(t *testing.T) {
	boot(t, Config{}, func(k *Kernel) int {
		var kids []*Proc
		for i := range 5 {
			kids = append(kids, spawn(k, "child", func() int { return 10 + i }))
		}
		for i, p := range slices.Backward(kids) {
			pid, status, err := k.Waitpid(p.Pid, 0)
			if err != nil || pid != p.Pid || status != 10+i {
				t.Errorf("Waitpid(%d) = %d, %d, %v; want status %d", p.Pid, pid, status, err, 10+i)
			}
		}
		return 0
	})
}

// Waiting for one child ignores the deaths of the others.
func TestWaitSpecificIgnoresOthers(t *testing.T) {
	boot(t, Config{}, func(k *Kernel) int {
		var q WaitQueue
		a := spawn(k, "a", func() int { return 1 })
		b := spawn(k, "b", func() int { k.SleepOn(&q); return 2 })
		c := spawn(k, "c", func() int {
			k.Yield()
			k.WakeupOn(&q)
			return 3
		})
		pid, status, err := k.Waitpid(b.Pid, 0)
		if err != nil || pid != b.Pid || status != 2 {
			t.Errorf("Waitpid(b) = %d, %d, %v", pid, status, err)
		}
		if a.State() != ProcDead || k.Lookup(a.Pid) != a {
			t.Errorf("a was reaped by Waitpid(b)")
		}
		for _, p := range []*Proc{a, c} {
			pid, _, err := k.Waitpid(-1, 0)
			if err != nil || pid != p.Pid {
				t.Errorf("Waitpid(-1) = %d, %v; want %d", pid, err, p.Pid)
			}
		}
		return 0
	})
}

func TestWaitErrors(t *testing.T) {
	boot(t, Config{}, func(k *Kernel) int {
		if _, _, err := k.Waitpid(-1, 0); err != ECHILD {
			t.Errorf("Waitpid(-1) with no children = %v, want ECHILD", err)
		}
		var grandchild *Proc
		p := spawn(k, "child", func() int {
			grandchild = spawn(k, "grandchild", func() int { return 0 })
			k.Waitpid(-1, 0)
			return 0
		})
		k.Yield()
		for _, pid := range []int{PidIdle + 999, PidInit, grandchild.Pid} {
			if _, _, err := k.Waitpid(pid, 0); err != ECHILD {
				t.Errorf("Waitpid(%d) = %v, want ECHILD", pid, err)
			}
		}
		for _, pid := range []int{0, -2, -100} {
			if _, _, err := k.Waitpid(pid, 0); err != EINVAL {
				t.Errorf("Waitpid(%d) = %v, want EINVAL", pid, err)
			}
		}
		mustPanic(t, "options", func() { k.Waitpid(-1, 1) })
		k.Waitpid(p.Pid, 0)
		return 0
	})
}
