// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kshell

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"rsc.io/weenix/kern"
)

var errUsage = errors.New("usage")

type command struct {
	name string
	args string
	help string
	run  func(sh *Shell, args []string) error
}

var commands = []command{
	{"echo", "[ARG...]", "print the arguments", (*Shell).echo},
	{"ps", "", "list processes", (*Shell).ps},
	{"info", "[PID]", "describe a process (default the shell)", (*Shell).info},
	{"stats", "", "print resource usage", (*Shell).stats},
	{"spawn", "NAME [STATUS]", "create a child that exits with STATUS", (*Shell).spawn},
	{"sleep", "NAME", "create a child that sleeps until woken or killed", (*Shell).sleep},
	{"wake", "", "wake every sleeping child", (*Shell).wake},
	{"yield", "", "let every runnable thread run", (*Shell).yield},
	{"wait", "[PID]", "reap a child", (*Shell).wait},
	{"kill", "PID [STATUS]", "kill a process", (*Shell).kill},
	{"tree", "FILE", "draw the process tree as a PNG", (*Shell).tree},
	{"test", "[NAME...]", "run kernel self tests (default all)", (*Shell).test},
}

func lookup(name string) *command {
	for i := range commands {
		if commands[i].name == name {
			return &commands[i]
		}
	}
	return nil
}

func (sh *Shell) echo(args []string) error {
	sh.printf("%s\n", strings.Join(args, " "))
	return nil
}

func (sh *Shell) ps(args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	sh.k.ListInfo(sh.tty)
	return nil
}

// proc returns the process named by a pid argument.
func (sh *Shell) proc(arg string) (*kern.Proc, error) {
	pid, err := strconv.Atoi(arg)
	if err != nil {
		return nil, kern.EINVAL
	}
	p := sh.k.Lookup(pid)
	if p == nil {
		return nil, kern.ESRCH
	}
	return p, nil
}

func (sh *Shell) info(args []string) error {
	p := sh.k.CurProc()
	switch len(args) {
	case 0:
	case 1:
		var err error
		if p, err = sh.proc(args[0]); err != nil {
			return err
		}
	default:
		return errUsage
	}
	sh.k.Info(sh.tty, p)
	return nil
}

func (sh *Shell) stats(args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	st := sh.k.Stats()
	sh.printf("procs %d threads %d pages %d used %d free\n", st.Procs, st.Threads, st.PagesInUse, st.PagesFree)
	return nil
}

// child creates a child process of the shell running fn. It does not
// make the thread runnable.
func (sh *Shell) child(name string, fn kern.ThreadFunc) (*kern.Proc, *kern.Thread, error) {
	k := sh.k
	p, err := k.CreateProc(name)
	if err != nil {
		return nil, nil, err
	}
	t, err := k.CreateThread(p, fn)
	if err != nil {
		// A process with no threads can never exit on its own.
		k.Kill(p, 0)
		return nil, nil, err
	}
	return p, t, nil
}

func (sh *Shell) spawn(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	status := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		status = n
	}
	p, t, err := sh.child(args[0], func() int { return status })
	if err != nil {
		return err
	}
	sh.k.MakeRunnable(t)
	sh.printf("spawned %v\n", p)
	return nil
}

func (sh *Shell) sleep(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	k := sh.k
	p, t, err := sh.child(args[0], func() int {
		if err := k.CancellableSleepOn(&sh.sleepq); err != nil {
			k.Testcancel()
		}
		return 0
	})
	if err != nil {
		return err
	}
	k.MakeRunnable(t)
	sh.printf("spawned %v\n", p)
	return nil
}

func (sh *Shell) wake(args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	n := sh.sleepq.Len()
	sh.k.BroadcastOn(&sh.sleepq)
	sh.printf("woke %d\n", n)
	return nil
}

func (sh *Shell) yield(args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	sh.k.Yield()
	return nil
}

func (sh *Shell) wait(args []string) error {
	pid := -1
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errUsage
		}
		pid = n
	default:
		return errUsage
	}
	pid, status, err := sh.k.Waitpid(pid, 0)
	if err != nil {
		return err
	}
	sh.printf("reaped %d status %d\n", pid, status)
	return nil
}

func (sh *Shell) kill(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	p, err := sh.proc(args[0])
	if err != nil {
		return err
	}
	status := 0
	if len(args) == 2 {
		if status, err = strconv.Atoi(args[1]); err != nil {
			return errUsage
		}
	}
	if p == sh.k.Idle() || p.State() == kern.ProcDead {
		return kern.EINVAL
	}
	sh.printf("killing %v\n", p)
	sh.k.Kill(p, status)
	return nil
}

func (sh *Shell) tree(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := DrawTree(sh.k, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
