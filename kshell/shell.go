// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kshell is a small command shell that runs as the init
// process of a kern.Kernel. It reads commands from a terminal and
// uses them to create, kill, reap and inspect processes, and to run
// the kernel's self tests.
package kshell

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rsc.io/weenix/hw"
	"rsc.io/weenix/kern"
)

// A Shell is a kernel booted with a shell as its init process.
type Shell struct {
	Prompt string // printed before echoed commands
	Echo   bool   // echo each command line to the terminal

	k      *kern.Kernel
	dev    *hw.TTY
	tty    *kern.TTY
	sleepq kern.WaitQueue
}

// New creates a kernel with cfg whose init process runs a shell on a
// terminal printing to out. Nothing runs until Run.
func New(cfg kern.Config, out io.Writer) (*Shell, error) {
	k, err := kern.New(cfg)
	if err != nil {
		return nil, err
	}
	sh := &Shell{Prompt: "wx> ", k: k}
	sh.dev = k.CPU().NewTTY(out)
	sh.tty = k.AttachTTY(sh.dev)
	sh.sleepq.Init()
	if err := k.Start(sh.main); err != nil {
		return nil, err
	}
	return sh, nil
}

// Kernel returns the shell's kernel.
func (sh *Shell) Kernel() *kern.Kernel { return sh.k }

// Input types b at the terminal. Safe from any goroutine.
func (sh *Shell) Input(b []byte) { sh.dev.Input(b) }

// Hangup ends terminal input. The shell exits with status 0 once it
// has run every buffered command.
func (sh *Shell) Hangup() { sh.dev.Hangup() }

// Run runs the kernel until it halts and returns the shell's exit
// status.
func (sh *Shell) Run(ctx context.Context) (int, error) {
	if err := sh.k.Run(ctx); err != nil {
		return 0, err
	}
	return sh.k.InitStatus(), nil
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.tty, format, args...)
}

// main is the body of init.
func (sh *Shell) main() int {
	for {
		line, err := sh.tty.ReadLine()
		if err == io.EOF {
			return 0
		}
		if err != nil {
			sh.printf("kshell: %v\n", err)
			return 1
		}
		if sh.Echo {
			sh.printf("%s%s\n", sh.Prompt, line)
		}
		if status, exit := sh.exec(line); exit {
			return status
		}
	}
}

// exec runs one command line. It reports whether the shell should
// exit, and with what status.
func (sh *Shell) exec(line string) (status int, exit bool) {
	f := strings.Fields(line)
	if len(f) == 0 || strings.HasPrefix(f[0], "#") {
		return 0, false
	}
	name, args := f[0], f[1:]
	switch name {
	case "exit":
		if len(args) > 1 {
			sh.printf("usage: exit [STATUS]\n")
			return 0, false
		}
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				sh.printf("kshell: exit: bad status %q\n", args[0])
				return 0, false
			}
			status = n
		}
		return status, true
	case "help":
		sh.help()
		return 0, false
	}
	cmd := lookup(name)
	if cmd == nil {
		sh.printf("kshell: %s: command not found\n", name)
		return 0, false
	}
	if err := cmd.run(sh, args); err != nil {
		if err == errUsage {
			sh.printf("usage: %s %s\n", cmd.name, cmd.args)
		} else {
			sh.printf("kshell: %s: %v\n", name, err)
		}
	}
	return 0, false
}

func (sh *Shell) help() {
	sh.printf("%-24s %s\n", "exit [STATUS]", "exit the shell, halting the kernel")
	sh.printf("%-24s %s\n", "help", "print this list")
	for _, c := range commands {
		sh.printf("%-24s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
}
