// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kshell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/tools/txtar"

	"rsc.io/weenix/kern"
)

// A Script is a shell session stored as a txtar archive.
// The "script" file is typed at the terminal; the optional "want"
// file is the expected transcript. The archive comment may set kernel
// tunables, one k=v per line: maxprocs, maxthreads, mempages,
// stacksize and tick.
type Script struct {
	Name  string
	Input []byte
	Want  []byte // nil if the archive has no want file
	Tune  func(*kern.Config)
}

// ReadScript reads the script archive in file.
func ReadScript(file string) (*Script, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseScript(file, data)
}

// ParseScript parses a script archive.
func ParseScript(name string, data []byte) (*Script, error) {
	ar := txtar.Parse(data)
	s := &Script{Name: name}
	for _, f := range ar.Files {
		switch f.Name {
		case "script":
			s.Input = f.Data
		case "want":
			s.Want = f.Data
		default:
			return nil, fmt.Errorf("%s: unknown file %q", name, f.Name)
		}
	}
	if s.Input == nil {
		return nil, fmt.Errorf("%s: no script file", name)
	}
	var sets []func(*kern.Config)
	for _, line := range strings.Split(string(ar.Comment), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set, err := parseTunable(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		sets = append(sets, set)
	}
	s.Tune = func(cfg *kern.Config) {
		for _, set := range sets {
			set(cfg)
		}
	}
	return s, nil
}

func parseTunable(arg string) (func(*kern.Config), error) {
	k, v, ok := strings.Cut(arg, "=")
	if !ok {
		return nil, fmt.Errorf("invalid k=v: %s", arg)
	}
	if k == "tick" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid k=v: %s", arg)
		}
		return func(cfg *kern.Config) { cfg.Tick = d }, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid k=v: %s", arg)
	}
	switch k {
	case "maxprocs":
		return func(cfg *kern.Config) { cfg.MaxProcs = i }, nil
	case "maxthreads":
		return func(cfg *kern.Config) { cfg.MaxThreads = i }, nil
	case "mempages":
		return func(cfg *kern.Config) { cfg.MemPages = i }, nil
	case "stacksize":
		return func(cfg *kern.Config) { cfg.StackSize = i }, nil
	}
	return nil, fmt.Errorf("invalid k=v: %s", arg)
}

// Run runs s on a fresh kernel configured by cfg and the script's own
// tunables. It returns the transcript, with each command echoed after
// the prompt, and the shell's exit status.
func (s *Script) Run(ctx context.Context, cfg kern.Config) ([]byte, int, error) {
	s.Tune(&cfg)
	var out bytes.Buffer
	sh, err := New(cfg, &out)
	if err != nil {
		return nil, 0, err
	}
	sh.Echo = true
	sh.Input(s.Input)
	sh.Hangup()
	status, err := sh.Run(ctx)
	return out.Bytes(), status, err
}
