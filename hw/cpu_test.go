// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"
)

func mustPanic(t *testing.T, want string, f func()) {
	t.Helper()
	defer func() {
		e := recover()
		if s, _ := e.(string); e == nil || !strings.Contains(s, want) {
			t.Errorf("panic %v, want %q", e, want)
		}
	}()
	f()
}

func TestDeliveryByLevel(t *testing.T) {
	c := NewCPU()
	var got []string
	record := func(name string) func() {
		return func() { got = append(got, name+"@"+c.IPL().String()) }
	}
	c.Raise(IPLTTY, record("tty"))
	c.Raise(IPLClock, record("clock"))
	c.Raise(IPLTTY, record("tty2"))
	if len(got) != 0 {
		t.Fatalf("delivered at high: %v", got)
	}
	c.SetIPL(IPLTTY)
	if want := []string{"clock@clock"}; !slices.Equal(got, want) {
		t.Fatalf("at tty level delivered %v, want %v", got, want)
	}
	c.SetIPL(IPLLow)
	if want := []string{"clock@clock", "tty@tty", "tty2@tty"}; !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
	if c.IPL() != IPLLow {
		t.Errorf("ipl %v after delivery, want low", c.IPL())
	}
}

func TestNestedInterrupt(t *testing.T) {
	c := NewCPU()
	var got []string
	c.Raise(IPLTTY, func() {
		c.Raise(IPLClock, func() { got = append(got, "clock") })
		c.SetIPL(IPLTTY) // delivers the clock interrupt
		got = append(got, "tty")
	})
	c.SetIPL(IPLLow)
	if want := []string{"clock", "tty"}; !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestBadLevels(t *testing.T) {
	c := NewCPU()
	mustPanic(t, "bad interrupt level", func() { c.Raise(IPLLow, func() {}) })
	mustPanic(t, "bad interrupt level", func() { c.Raise(8, func() {}) })
	mustPanic(t, "bad ipl", func() { c.SetIPL(9) })
	mustPanic(t, "masked", c.Wait)
	if s := IPL(3).String(); s != "IPL(3)" {
		t.Errorf("IPL(3).String() = %q", s)
	}
}

func TestWait(t *testing.T) {
	c := NewCPU()
	c.SetIPL(IPLLow)
	n := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Raise(IPLClock, func() { n++ })
	}()
	c.Wait()
	if n != 1 {
		t.Errorf("Wait returned after %d interrupts", n)
	}
}

func TestStopWait(t *testing.T) {
	c := NewCPU()
	done := make(chan bool)
	go func() {
		defer close(done)
		c.SetIPL(IPLLow)
		c.Wait()
		t.Errorf("Wait returned on a stopped processor")
	}()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
	c.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not exit after Stop")
	}
}

func TestSwitch(t *testing.T) {
	c := NewCPU()
	var trace []string
	done := make(chan bool)
	stack := func() []byte { return make([]byte, 4096) }
	var a, b *Context
	a = c.NewContext(func() {
		trace = append(trace, "a1@"+c.IPL().String())
		c.SetIPL(IPLClock)
		c.Switch(a, b)
		trace = append(trace, "a2@"+c.IPL().String())
		close(done)
		runtime.Goexit()
	}, stack(), nil)
	b = c.NewContext(func() {
		trace = append(trace, "b1@"+c.IPL().String())
		c.Switch(b, a)
		t.Errorf("b resumed")
	}, stack(), nil)

	c.MakeActive(a)
	<-done
	b.Release()
	a.Release()
	a.Release()

	want := []string{"a1@low", "b1@low", "a2@clock"}
	if !slices.Equal(trace, want) {
		t.Errorf("trace %v, want %v", trace, want)
	}
	mustPanic(t, "released", func() { c.Switch(a, b) })
}

func TestReleaseRunsDefers(t *testing.T) {
	c := NewCPU()
	ran := false
	ctx := c.NewContext(func() {
		defer func() { ran = true }()
		select {}
	}, make([]byte, 1), nil)
	ctx.Release()
	if ran {
		t.Errorf("never-started context ran its entry")
	}

	parked := make(chan bool)
	var a, b *Context
	a = c.NewContext(func() {
		defer func() { ran = true }()
		c.Switch(a, b)
	}, make([]byte, 1), nil)
	b = c.NewContext(func() {
		close(parked)
		runtime.Goexit()
	}, make([]byte, 1), nil)
	c.MakeActive(a)
	<-parked
	a.Release()
	if !ran {
		t.Errorf("Release did not run deferred calls")
	}
}
