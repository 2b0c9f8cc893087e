// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kshell

import (
	"errors"
	"fmt"
	"slices"

	"rsc.io/weenix/kern"
)

// A selftest runs in the shell's own thread, as the init process.
// It needs the shell to have no children, since it reaps with
// Waitpid(-1).
type selftest struct {
	name string
	run  func(sh *Shell) error
}

var selftests = []selftest{
	{"mutex", testMutex},
	{"inorder", testInorder},
	{"outoforder", testOutOfOrder},
	{"reap", testReap},
	{"zombie", testZombie},
	{"kill", testKill},
	{"cancel", testCancel},
}

func (sh *Shell) test(args []string) error {
	if len(sh.k.CurProc().Children()) > 0 {
		return errors.New("shell has children; wait for them first")
	}
	names := args
	if len(names) == 0 {
		for _, t := range selftests {
			names = append(names, t.name)
		}
	}
	failed := 0
	for _, name := range names {
		i := slices.IndexFunc(selftests, func(t selftest) bool { return t.name == name })
		if i < 0 {
			return fmt.Errorf("no test %q", name)
		}
		if err := selftests[i].run(sh); err != nil {
			sh.printf("%s: FAIL: %v\n", name, err)
			failed++
			continue
		}
		sh.printf("%s: ok\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d failed", failed)
	}
	return nil
}

// start creates a child running fn and makes it runnable.
func (sh *Shell) start(name string, fn kern.ThreadFunc) (*kern.Proc, error) {
	p, t, err := sh.child(name, fn)
	if err != nil {
		return nil, err
	}
	sh.k.MakeRunnable(t)
	return p, nil
}

// reapAll waits for n children.
func (sh *Shell) reapAll(n int) error {
	for range n {
		if _, _, err := sh.k.Waitpid(-1, 0); err != nil {
			return err
		}
	}
	return nil
}

func expect(what string, have, want []string) error {
	if !slices.Equal(have, want) {
		return fmt.Errorf("%s %v, want %v", what, have, want)
	}
	return nil
}

// testMutex holds a mutex across a yield: the second locker must wait
// while an unrelated thread runs.
func testMutex(sh *Shell) error {
	k := sh.k
	m := k.NewMutex()
	var trace []string
	log := func(s string) { trace = append(trace, s) }
	bodies := []kern.ThreadFunc{
		func() int {
			m.Lock()
			log("1 locked")
			k.Yield()
			log("1 unlocking")
			m.Unlock()
			return 0
		},
		func() int {
			m.Lock()
			log("2 locked")
			m.Unlock()
			return 0
		},
		func() int {
			log("3 ran")
			return 0
		},
	}
	for i, fn := range bodies {
		if _, err := sh.start(fmt.Sprint("mutexfunc", i+1), fn); err != nil {
			return err
		}
	}
	if err := sh.reapAll(len(bodies)); err != nil {
		return err
	}
	if m.Holder() != nil {
		return errors.New("mutex still held")
	}
	return expect("trace", trace, []string{"1 locked", "3 ran", "1 unlocking", "2 locked"})
}

// testInorder runs five children made runnable in creation order.
func testInorder(sh *Shell) error {
	var ran []string
	for i := range 5 {
		name := fmt.Sprint("inorder", i+1)
		if _, err := sh.start(name, func() int {
			ran = append(ran, name)
			return 0
		}); err != nil {
			return err
		}
	}
	if err := sh.reapAll(5); err != nil {
		return err
	}
	return expect("ran", ran, []string{"inorder1", "inorder2", "inorder3", "inorder4", "inorder5"})
}

// testOutOfOrder makes children runnable in a different order than
// they were created, then reaps them by pid in yet another order.
func testOutOfOrder(sh *Shell) error {
	k := sh.k
	var ran []string
	procs := map[string]*kern.Proc{}
	threads := map[string]*kern.Thread{}
	for _, name := range []string{"ooo5", "ooo1", "ooo3", "ooo2", "ooo4"} {
		p, t, err := sh.child(name, func() int {
			ran = append(ran, name)
			return 0
		})
		if err != nil {
			return err
		}
		procs[name], threads[name] = p, t
	}
	for _, name := range []string{"ooo1", "ooo2", "ooo3", "ooo4", "ooo5"} {
		k.MakeRunnable(threads[name])
	}
	for _, name := range []string{"ooo3", "ooo2", "ooo1", "ooo5", "ooo4"} {
		pid, _, err := k.Waitpid(procs[name].Pid, 0)
		if err != nil {
			return err
		}
		if pid != procs[name].Pid {
			return fmt.Errorf("waited for %s, reaped pid %d", name, pid)
		}
	}
	return expect("ran", ran, []string{"ooo1", "ooo2", "ooo3", "ooo4", "ooo5"})
}

// testReap reaps five children, then finds none left.
func testReap(sh *Shell) error {
	k := sh.k
	before := k.Stats()
	var pids []int
	for range 5 {
		p, err := sh.start("reapee", func() int { return 0 })
		if err != nil {
			return err
		}
		pids = append(pids, p.Pid)
	}
	var reaped []int
	for range 5 {
		pid, status, err := k.Waitpid(-1, 0)
		if err != nil {
			return err
		}
		if status != 0 {
			return fmt.Errorf("pid %d status %d", pid, status)
		}
		reaped = append(reaped, pid)
	}
	if _, _, err := k.Waitpid(-1, 0); err != kern.ECHILD {
		return fmt.Errorf("sixth wait: %v, want ECHILD", err)
	}
	slices.Sort(reaped)
	if !slices.Equal(reaped, pids) {
		return fmt.Errorf("reaped %v, want %v", reaped, pids)
	}
	if after := k.Stats(); after != before {
		return fmt.Errorf("leaked: %+v, was %+v", after, before)
	}
	return nil
}

// testZombie has a parent start three children and kill itself before
// they run: they must find init as their parent, and init reaps them.
func testZombie(sh *Shell) error {
	k := sh.k
	initp := k.CurProc()
	var parents []string
	parent, err := sh.start("zombieparent", func() int {
		for i := range 3 {
			_, t, err := sh.child(fmt.Sprint("zombiechild", i+1), func() int {
				parents = append(parents, k.CurProc().Parent().Name)
				return 0
			})
			if err != nil {
				return 1
			}
			k.MakeRunnable(t)
		}
		k.Kill(k.CurProc(), 0)
		return 0
	})
	if err != nil {
		return err
	}
	if _, _, err := k.Waitpid(parent.Pid, 0); err != nil {
		return err
	}
	if err := sh.reapAll(3); err != nil {
		return err
	}
	return expect("parents", parents, []string{initp.Name, initp.Name, initp.Name})
}

// testKill kills a process from outside while its children sleep.
// The children move to init once the killed process has exited.
func testKill(sh *Shell) error {
	k := sh.k
	initp := k.CurProc()
	var gate, nap kern.WaitQueue
	var kids []*kern.Proc
	victim, err := sh.start("victim", func() int {
		for i := range 2 {
			p, err := sh.start(fmt.Sprint("orphan", i+1), func() int {
				k.SleepOn(&gate)
				return 7
			})
			if err != nil {
				return 1
			}
			kids = append(kids, p)
		}
		k.CancellableSleepOn(&nap)
		k.Testcancel()
		return 0
	})
	if err != nil {
		return err
	}
	k.Yield()
	k.Yield()
	if len(kids) != 2 {
		return errors.New("victim did not start its children")
	}
	k.Kill(victim, 9)
	for _, c := range kids {
		if c.Parent() != victim {
			return fmt.Errorf("%v reparented before the victim exited", c)
		}
	}
	k.Yield()
	for _, c := range kids {
		if c.Parent() != initp {
			return fmt.Errorf("%v has parent %v, want init", c, c.Parent())
		}
	}
	if _, _, err := k.Waitpid(victim.Pid, 0); err != kern.ECHILD {
		return fmt.Errorf("wait for killed process: %v, want ECHILD", err)
	}
	k.BroadcastOn(&gate)
	for range kids {
		_, status, err := k.Waitpid(-1, 0)
		if err != nil {
			return err
		}
		if status != 7 {
			return fmt.Errorf("orphan status %d, want 7", status)
		}
	}
	return nil
}

// testCancel cancels a thread waiting for a mutex: it gives up with
// EINTR and the mutex stays with its holder.
func testCancel(sh *Shell) error {
	k := sh.k
	m := k.NewMutex()
	m.Lock()
	defer m.Unlock()
	var lockErr error
	p, err := sh.start("canceller", func() int {
		lockErr = m.LockCancellable()
		k.Testcancel()
		return 0
	})
	if err != nil {
		return err
	}
	k.Yield()
	if m.Waiters() != 1 {
		return fmt.Errorf("%d waiters, want 1", m.Waiters())
	}
	k.Cancel(p.Threads()[0], 3)
	_, status, err := k.Waitpid(p.Pid, 0)
	if err != nil {
		return err
	}
	if lockErr != kern.EINTR || status != 3 {
		return fmt.Errorf("LockCancellable = %v, status %d; want EINTR, 3", lockErr, status)
	}
	if m.Holder() != k.Cur() {
		return errors.New("cancelled waiter took the mutex")
	}
	return nil
}
