// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"sync"
	"sync/atomic"
	"time"
)

// A Clock is the line clock: it raises an IPLClock interrupt every
// period. Ticks that arrive while the previous one is still pending
// are dropped.
type Clock struct {
	cpu      *CPU
	ticker   *time.Ticker
	stop     chan struct{}
	once     sync.Once
	inflight atomic.Bool
	ticks    atomic.Int64
}

// StartClock starts a clock whose interrupt handler is tick.
func (c *CPU) StartClock(period time.Duration, tick func()) *Clock {
	clk := &Clock{
		cpu:    c,
		ticker: time.NewTicker(period),
		stop:   make(chan struct{}),
	}
	go clk.run(tick)
	return clk
}

func (clk *Clock) run(tick func()) {
	defer clk.ticker.Stop()
	for {
		select {
		case <-clk.stop:
			return
		case <-clk.ticker.C:
			if !clk.inflight.CompareAndSwap(false, true) {
				continue
			}
			clk.cpu.Raise(IPLClock, func() {
				clk.inflight.Store(false)
				clk.ticks.Add(1)
				tick()
			})
		}
	}
}

// Ticks returns the number of clock interrupts delivered so far.
func (clk *Clock) Ticks() int64 { return clk.ticks.Load() }

// Stop stops the clock. An interrupt already raised may still be
// delivered.
func (clk *Clock) Stop() {
	clk.once.Do(func() { close(clk.stop) })
}
