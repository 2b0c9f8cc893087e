// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import (
	"io"

	"rsc.io/weenix/hw"
)

// A TTY is the kernel side of a terminal device. Readers sleep on its
// queue; the device interrupt wakes them all.
type TTY struct {
	k     *Kernel
	dev   *hw.TTY
	readq WaitQueue
}

// AttachTTY connects dev to k.
func (k *Kernel) AttachTTY(dev *hw.TTY) *TTY {
	t := &TTY{k: k, dev: dev}
	t.readq.Init()
	dev.Notify = func() { k.BroadcastOn(&t.readq) }
	return t
}

// ReadLine returns the next input line. It returns io.EOF after a
// hangup and EINTR if the reading thread is cancelled.
func (t *TTY) ReadLine() (string, error) {
	k := t.k
	ipl := k.disable()
	defer k.restore(ipl)
	for {
		if line, ok := t.dev.Line(); ok {
			return line, nil
		}
		if t.dev.EOF() {
			return "", io.EOF
		}
		if err := k.CancellableSleepOn(&t.readq); err != nil {
			return "", err
		}
	}
}

func (t *TTY) Write(b []byte) (int, error) {
	return t.dev.Write(b)
}
