// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kern

/*
 * tunable variables
 */
const (
	ProcMaxCount     = 65536     /* size of the pid space */
	DefaultStackSize = 16 * 1024 /* kernel stack, not counting the guard page */
	DefaultMemPages  = 8192      /* physical pages for stacks and page directories */
)

/*
 * fundamental constants
 * cannot be changed
 */
const (
	PidIdle = 0
	PidInit = 1
)
