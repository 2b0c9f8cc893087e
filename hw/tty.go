// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"bytes"
	"io"
)

/* special characters */
const (
	CEOT  = 0o004 // ^D
	CKILL = 'U' - '@'
)

// A TTY is a line-disciplined terminal. Input arrives by interrupt;
// output goes straight to Output.
//
// Line, EOF and the Notify callback belong to the processor side and
// must only be used by the context holding the processor.
type TTY struct {
	Output io.Writer

	// Notify is called from the interrupt handler after new input
	// has been processed.
	Notify func()

	cpu   *CPU
	raw   bytes.Buffer // current partial line
	lines []string
	eof   bool
}

// NewTTY returns a terminal attached to c that prints to out.
func (c *CPU) NewTTY(out io.Writer) *TTY {
	return &TTY{Output: out, cpu: c}
}

// Input delivers b as if typed at the keyboard. It is safe to call
// from any goroutine.
func (t *TTY) Input(b []byte) {
	b = bytes.Clone(b)
	t.cpu.Raise(IPLTTY, func() {
		for _, c := range b {
			t.rint(c)
		}
		t.notify()
	})
}

// Hangup marks the end of input once buffered lines are consumed.
func (t *TTY) Hangup() {
	t.cpu.Raise(IPLTTY, func() {
		t.flush()
		t.eof = true
		t.notify()
	})
}

func (t *TTY) notify() {
	if t.Notify != nil {
		t.Notify()
	}
}

// rint processes one input character.
func (t *TTY) rint(c byte) {
	switch c {
	case '\b', 0x7F:
		if n := t.raw.Len(); n > 0 {
			t.raw.Truncate(n - 1)
		}
	case CKILL:
		t.raw.Reset()
	case '\r', '\n':
		t.lines = append(t.lines, t.raw.String())
		t.raw.Reset()
	case CEOT:
		if t.raw.Len() > 0 {
			t.flush()
		} else {
			t.eof = true
		}
	default:
		t.raw.WriteByte(c)
	}
}

func (t *TTY) flush() {
	if t.raw.Len() > 0 {
		t.lines = append(t.lines, t.raw.String())
		t.raw.Reset()
	}
}

// Line returns the next complete input line, without its newline.
func (t *TTY) Line() (string, bool) {
	if len(t.lines) == 0 {
		return "", false
	}
	line := t.lines[0]
	t.lines = t.lines[1:]
	return line, true
}

// EOF reports whether input has ended and every line was read.
func (t *TTY) EOF() bool {
	return t.eof && len(t.lines) == 0
}

// Write writes b to the terminal output.
func (t *TTY) Write(b []byte) (int, error) {
	if t.Output == nil {
		return len(b), nil
	}
	return t.Output.Write(b)
}
