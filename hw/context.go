// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"runtime"

	"rsc.io/weenix/mm"
)

// A Context is a saved execution context: a goroutine parked until
// the processor is switched to it.
type Context struct {
	Stack   []byte
	Pagedir *mm.Pagedir

	cpu      *CPU
	ipl      IPL // level to resume at
	run      chan struct{}
	kill     chan struct{}
	done     chan struct{}
	released bool
}

// NewContext returns a context that will begin executing entry on its
// first switch, at IPLLow. Entry must never return; a context leaves
// the processor only by switching to another one.
func (c *CPU) NewContext(entry func(), stack []byte, pdir *mm.Pagedir) *Context {
	if len(stack) == 0 {
		panic("hw: context without stack")
	}
	ctx := &Context{
		Stack:   stack,
		Pagedir: pdir,
		cpu:     c,
		ipl:     IPLLow,
		run:     make(chan struct{}),
		kill:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ctx.start(entry)
	return ctx
}

func (ctx *Context) start(entry func()) {
	defer close(ctx.done)
	ctx.park()
	entry()
	panic("hw: context entry returned")
}

// park gives up the goroutine until the context is switched to or
// released. On resume the context's own priority level is restored.
func (ctx *Context) park() {
	select {
	case <-ctx.run:
	case <-ctx.kill:
		runtime.Goexit()
	}
	ctx.cpu.SetIPL(ctx.ipl)
}

// Switch saves the running context in old and resumes new.
// It returns when some other context switches back to old.
func (c *CPU) Switch(old, new *Context) {
	if old == new {
		return
	}
	if new.released {
		panic("hw: switch to released context")
	}
	old.ipl = c.ipl
	new.run <- struct{}{}
	old.park()
}

// MakeActive starts the processor in ctx. It is called once, by the
// host, which is not itself a context.
func (c *CPU) MakeActive(ctx *Context) {
	ctx.run <- struct{}{}
}

// Release discards a parked context. Its goroutine exits; deferred
// calls in it run before Release returns. Releasing the running
// context deadlocks.
func (ctx *Context) Release() {
	if ctx.released {
		return
	}
	ctx.released = true
	close(ctx.kill)
	<-ctx.done
}
