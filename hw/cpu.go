// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hw simulates the single processor the kernel runs on:
// interrupt priority levels, interrupt delivery, execution contexts
// and a couple of devices that raise interrupts.
//
// Every execution context is a goroutine. Exactly one of them holds
// the processor at a time; the others are parked on a channel receive.
// Devices run on their own goroutines but never touch kernel state:
// they post interrupts with Raise, and the handlers run on whichever
// context holds the processor, the next time it lowers its priority
// level or waits for an interrupt.
package hw

import (
	"fmt"
	"runtime"
	"sync"
)

// An IPL is an interrupt priority level, as in the PDP-11 PS word.
// An interrupt at level l is delivered only while the processor runs
// below l.
type IPL uint8

const (
	IPLLow   IPL = 0 // all interrupts enabled
	IPLTTY   IPL = 4
	IPLClock IPL = 6
	IPLHigh  IPL = 7 // all interrupts masked
)

func (l IPL) String() string {
	switch l {
	case IPLLow:
		return "low"
	case IPLTTY:
		return "tty"
	case IPLClock:
		return "clock"
	case IPLHigh:
		return "high"
	}
	return fmt.Sprintf("IPL(%d)", uint8(l))
}

// A CPU is the simulated processor.
//
// IPL, SetIPL, Wait and Switch may only be called by the context that
// holds the processor. Raise and Stop may be called from any goroutine.
type CPU struct {
	ipl IPL

	mu      sync.Mutex
	pending []intr
	kick    chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

type intr struct {
	level   IPL
	handler func()
}

// NewCPU returns a processor with all interrupts masked.
func NewCPU() *CPU {
	return &CPU{
		ipl:  IPLHigh,
		kick: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// IPL returns the current interrupt priority level.
func (c *CPU) IPL() IPL { return c.ipl }

// SetIPL sets the interrupt priority level. Lowering the level
// delivers any pending interrupts it unmasks before SetIPL returns.
func (c *CPU) SetIPL(l IPL) {
	if l > IPLHigh {
		panic("hw: bad ipl")
	}
	c.ipl = l
	c.deliver()
}

// Raise posts an interrupt at the given level. The handler runs on the
// processor with the level raised to l.
func (c *CPU) Raise(l IPL, handler func()) {
	if l == IPLLow || l > IPLHigh {
		panic("hw: bad interrupt level")
	}
	c.mu.Lock()
	c.pending = append(c.pending, intr{l, handler})
	c.mu.Unlock()
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// next removes and returns the highest-level pending interrupt that
// the current level does not mask.
func (c *CPU) next() (intr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	best := -1
	for i, it := range c.pending {
		if it.level > c.ipl && (best < 0 || it.level > c.pending[best].level) {
			best = i
		}
	}
	if best < 0 {
		return intr{}, false
	}
	it := c.pending[best]
	c.pending = append(c.pending[:best], c.pending[best+1:]...)
	return it, true
}

func (c *CPU) deliver() int {
	n := 0
	for {
		it, ok := c.next()
		if !ok {
			return n
		}
		old := c.ipl
		c.ipl = it.level
		it.handler()
		c.ipl = old
		n++
	}
}

// Wait blocks the processor until at least one interrupt has been
// delivered. The caller must be running at IPLLow, or the interrupt
// it waits for could never arrive.
//
// If the processor is stopped while waiting, the calling goroutine
// exits.
func (c *CPU) Wait() {
	if c.ipl != IPLLow {
		panic("hw: wait with interrupts masked")
	}
	for {
		if c.deliver() > 0 {
			return
		}
		select {
		case <-c.kick:
		case <-c.stop:
			runtime.Goexit()
		}
	}
}

// Stop abandons the processor: a context blocked in Wait exits.
// Used by hosts that give up on a kernel that never halts.
func (c *CPU) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
