// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

import "fmt"

// Errors returned to callers. Broken invariants are panics instead.
const (
	ESRCH  Errno = 3
	EINTR  Errno = 4
	ECHILD Errno = 10
	EAGAIN Errno = 11
	ENOMEM Errno = 12
	EINVAL Errno = 22
)

type Errno int8

func (e Errno) Error() string {
	if s, ok := enames[e]; ok {
		return s
	}
	return fmt.Sprintf("Errno(%d)", int(e))
}

var enames = map[Errno]string{
	ESRCH:  "ESRCH",
	EINTR:  "EINTR",
	ECHILD: "ECHILD",
	EAGAIN: "EAGAIN",
	ENOMEM: "ENOMEM",
	EINVAL: "EINVAL",
}
