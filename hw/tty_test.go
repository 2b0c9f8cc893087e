// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"bytes"
	"slices"
	"testing"
	"time"
)

var ttyTests = []struct {
	in    string
	lines []string
	eof   bool
}{
	{"hello\n", []string{"hello"}, false},
	{"a\rb\n", []string{"a", "b"}, false},
	{"hellp\bo\n", []string{"hello"}, false},
	{"x\x7f\x7f\x7fy\n", []string{"y"}, false},
	{"junk\x15good\n", []string{"good"}, false},
	{"partial\x04rest\n", []string{"partial", "rest"}, false},
	{"\x04", nil, true},
	{"line\n\x04", []string{"line"}, true},
	{"no newline", nil, false},
}

func TestLineDiscipline(t *testing.T) {
	for _, tt := range ttyTests {
		c := NewCPU()
		tty := c.NewTTY(nil)
		notified := 0
		tty.Notify = func() { notified++ }
		tty.Input([]byte(tt.in))
		c.SetIPL(IPLLow)
		var lines []string
		for {
			line, ok := tty.Line()
			if !ok {
				break
			}
			lines = append(lines, line)
		}
		if !slices.Equal(lines, tt.lines) {
			t.Errorf("%q: lines %q, want %q", tt.in, lines, tt.lines)
		}
		if tty.EOF() != tt.eof {
			t.Errorf("%q: EOF() = %v, want %v", tt.in, tty.EOF(), tt.eof)
		}
		if notified != 1 {
			t.Errorf("%q: notified %d times", tt.in, notified)
		}
	}
}

// After a hangup, EOF is reported only once buffered lines have been
// read.
func TestHangup(t *testing.T) {
	c := NewCPU()
	tty := c.NewTTY(nil)
	tty.Input([]byte("one\ntwo"))
	tty.Hangup()
	c.SetIPL(IPLLow)
	for _, want := range []string{"one", "two"} {
		if tty.EOF() {
			t.Fatalf("EOF before %q", want)
		}
		if line, ok := tty.Line(); !ok || line != want {
			t.Fatalf("Line() = %q, %v; want %q", line, ok, want)
		}
	}
	if !tty.EOF() {
		t.Errorf("no EOF after hangup")
	}
}

func TestTTYWrite(t *testing.T) {
	c := NewCPU()
	var buf bytes.Buffer
	tty := c.NewTTY(&buf)
	if n, err := tty.Write([]byte("hi\n")); n != 3 || err != nil {
		t.Errorf("Write = %d, %v", n, err)
	}
	if buf.String() != "hi\n" {
		t.Errorf("output %q", buf.String())
	}
	if n, err := c.NewTTY(nil).Write([]byte("dropped")); n != 7 || err != nil {
		t.Errorf("Write to nil output = %d, %v", n, err)
	}
}

func TestClock(t *testing.T) {
	c := NewCPU()
	c.SetIPL(IPLLow)
	n := 0
	clk := c.StartClock(time.Millisecond, func() {
		if c.IPL() != IPLClock {
			t.Errorf("tick at ipl %v", c.IPL())
		}
		n++
	})
	for n < 3 {
		c.Wait()
	}
	clk.Stop()
	clk.Stop()
	if got := clk.Ticks(); got < 3 || got != int64(n) {
		t.Errorf("Ticks() = %d after %d ticks", got, n)
	}
}
