// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kern is the process and thread core of a small uniprocessor
// kernel: a FIFO run queue, wait queues with sleep and wakeup,
// cancellable sleeps, sleeping mutexes, and processes that exit into
// zombies until their parent reaps them with Waitpid.
//
// Kernel code runs in kernel threads, one at a time. A thread keeps
// the processor until it sleeps, yields or exits; interrupts delivered
// in between only make threads runnable. Queues shared with interrupt
// handlers are modified with the interrupt priority level raised to
// hw.IPLHigh.
//
// Unless stated otherwise, Kernel methods must be called from a kernel
// thread. New, Start and Run are called by the host.
package kern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"slices"
	"time"

	"rsc.io/weenix/hw"
	"rsc.io/weenix/mm"
)

// Config holds the tunables of a kernel. Zero fields take defaults.
type Config struct {
	MaxProcs   int           // size of the pid space (ProcMaxCount)
	MaxThreads int           // thread control blocks; 0 means no limit
	MemPages   int           // pages for stacks and page directories (DefaultMemPages)
	StackSize  int           // bytes per kernel stack (DefaultStackSize)
	Tick       time.Duration // clock period; 0 runs without a clock

	// Trace enables [pid N] trace lines on Log (default os.Stderr).
	Trace bool
	Log   io.Writer

	// Dirpath, if set, names a process's working directory in Info.
	// It is diagnostic only: errors are printed as "-".
	Dirpath func(p *Proc) (string, error)
}

type Kernel struct {
	cfg        Config
	cpu        *hw.CPU
	clock      *hw.Clock
	pages      *mm.Pages
	procSlab   *mm.Slab[Proc]
	threadSlab *mm.Slab[Thread]
	log        *log.Logger

	runq    WaitQueue
	lbolt   WaitQueue // woken every clock tick
	procs   []*Proc   // live and zombie processes
	killed  []*Proc   // killed processes, no longer registered
	nextPid int
	idle    *Proc
	init    *Proc
	curthr  *Thread
	curproc *Proc

	running    bool
	halted     chan struct{}
	initStatus int
}

// New returns a kernel with no processes.
func New(cfg Config) (*Kernel, error) {
	if cfg.MaxProcs == 0 {
		cfg.MaxProcs = ProcMaxCount
	}
	if cfg.MemPages == 0 {
		cfg.MemPages = DefaultMemPages
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = DefaultStackSize
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	if cfg.MaxProcs < 2 {
		return nil, fmt.Errorf("kern: MaxProcs %d leaves no room for init", cfg.MaxProcs)
	}
	if cfg.StackSize < 0 || cfg.StackSize%mm.PageSize != 0 {
		return nil, fmt.Errorf("kern: stack size %d is not a multiple of the page size", cfg.StackSize)
	}
	k := &Kernel{
		cfg:        cfg,
		cpu:        hw.NewCPU(),
		pages:      mm.NewPages(cfg.MemPages),
		procSlab:   mm.NewSlab[Proc]("proc", cfg.MaxProcs),
		threadSlab: mm.NewSlab[Thread]("kthread", cfg.MaxThreads),
		log:        log.New(cfg.Log, "", 0),
		halted:     make(chan struct{}),
	}
	k.runq.Init()
	k.lbolt.Init()
	return k, nil
}

// Start creates the idle process, whose thread will create init
// running initfn, wait for init to exit and halt the kernel.
// Nothing runs until Run.
func (k *Kernel) Start(initfn ThreadFunc) error {
	if k.idle != nil {
		return errors.New("kern: already started")
	}
	idle, err := k.CreateProc("idle")
	if err != nil {
		return fmt.Errorf("kern: creating idle process: %w", err)
	}
	t, err := k.CreateThread(idle, func() int {
		k.idleRun(initfn)
		return 0
	})
	if err != nil {
		return fmt.Errorf("kern: creating idle thread: %w", err)
	}
	t.state = ThreadRun
	k.curproc = idle
	k.curthr = t
	return nil
}

// Run hands the processor to the kernel and blocks until it halts.
// If ctx is done first, the processor is stopped and Run returns the
// context's error; the kernel cannot be resumed.
func (k *Kernel) Run(ctx context.Context) error {
	if k.curthr == nil {
		return errors.New("kern: not started")
	}
	if k.running {
		return errors.New("kern: already running")
	}
	k.running = true
	if k.cfg.Tick > 0 {
		k.clock = k.cpu.StartClock(k.cfg.Tick, func() { k.BroadcastOn(&k.lbolt) })
	}
	k.cpu.MakeActive(k.curthr.ctx)
	select {
	case <-k.halted:
		return nil
	case <-ctx.Done():
		if k.clock != nil {
			k.clock.Stop()
		}
		k.cpu.Stop()
		return ctx.Err()
	}
}

// idleRun is the body of process 0.
func (k *Kernel) idleRun(initfn ThreadFunc) {
	initp, err := k.CreateProc("init")
	if err != nil {
		panic("kern: creating init: " + err.Error())
	}
	if initp.Pid != PidInit {
		panic("kern: init has wrong pid")
	}
	t, err := k.CreateThread(initp, initfn)
	if err != nil {
		panic("kern: creating init thread: " + err.Error())
	}
	k.MakeRunnable(t)

	pid, status, err := k.Waitpid(-1, 0)
	if err != nil || pid != PidInit {
		panic(fmt.Sprintf("kern: idle reaped pid %d: %v", pid, err))
	}
	k.initStatus = status
	k.KillAll()
	k.halt()
}

// halt discards every remaining context and releases the host.
func (k *Kernel) halt() {
	if k.clock != nil {
		k.clock.Stop()
	}
	for _, p := range slices.Concat(k.procs, k.killed) {
		for _, t := range slices.Concat(p.threads, p.exited) {
			if t != k.curthr {
				t.ctx.Release()
			}
		}
	}
	k.tracef("halted cleanly")
	close(k.halted)
	runtime.Goexit()
}

// Halted reports whether the kernel has halted. Safe from the host.
func (k *Kernel) Halted() bool {
	select {
	case <-k.halted:
		return true
	default:
		return false
	}
}

// InitStatus returns the exit status of init once the kernel halted.
func (k *Kernel) InitStatus() int { return k.initStatus }

// CPU returns the processor the kernel runs on.
func (k *Kernel) CPU() *hw.CPU { return k.cpu }

// Cur returns the running thread.
func (k *Kernel) Cur() *Thread { return k.curthr }

// CurProc returns the process of the running thread.
func (k *Kernel) CurProc() *Proc { return k.curproc }

// Idle returns process 0.
func (k *Kernel) Idle() *Proc { return k.idle }

// Init returns process 1.
func (k *Kernel) Init() *Proc { return k.init }

// Pause sleeps until the next clock tick. It fails with EINVAL when
// the kernel runs without a clock, and with EINTR when cancelled.
func (k *Kernel) Pause() error {
	if k.cfg.Tick <= 0 {
		return EINVAL
	}
	return k.CancellableSleepOn(&k.lbolt)
}

// Stats is a snapshot of resource usage.
type Stats struct {
	Procs      int // registered processes
	Threads    int // allocated thread control blocks
	PagesInUse int
	PagesFree  int
}

func (k *Kernel) Stats() Stats {
	return Stats{
		Procs:      len(k.procs),
		Threads:    k.threadSlab.Live(),
		PagesInUse: k.pages.InUse(),
		PagesFree:  k.pages.Free(),
	}
}

func (k *Kernel) tracef(format string, args ...any) {
	if !k.cfg.Trace {
		return
	}
	pid := -1
	if k.curproc != nil {
		pid = k.curproc.Pid
	}
	k.log.Printf("[pid %d] "+format, append([]any{pid}, args...)...)
}
