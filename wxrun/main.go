// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Wxrun boots a simulated kernel whose init process is a command
// shell.
//
// Usage:
//
//	wxrun [-trace] [-maxprocs n] [-tick d] [-cpuprofile file] [-script file]
//
// With -script, wxrun runs the commands in a txtar script, prints the
// transcript, and compares it with the script's want file if it has
// one. Otherwise it reads commands from standard input, with line
// editing when standard input is a terminal. Either way it exits with
// the shell's exit status.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"golang.org/x/term"

	"rsc.io/weenix/kern"
	"rsc.io/weenix/kshell"
)

var (
	trace      = flag.Bool("trace", false, "trace scheduling and process events")
	cpuprofile = flag.String("cpuprofile", "", "write cpuprofile to `file`")
	maxprocs   = flag.Int("maxprocs", 0, "size of the pid space (default kernel setting)")
	tick       = flag.Duration("tick", 10*time.Millisecond, "clock period; 0 runs without a clock")
	script     = flag.String("script", "", "run the txtar script in `file`")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: wxrun [flags]\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("wxrun: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		usage()
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
	}

	cfg := kern.Config{
		MaxProcs: *maxprocs,
		Tick:     *tick,
		Trace:    *trace,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	var status int
	if *script != "" {
		status = runScript(ctx, cfg, *script)
	} else if term.IsTerminal(int(os.Stdin.Fd())) {
		status = interactive(ctx, cfg)
	} else {
		status = batch(ctx, cfg)
	}
	stop()
	pprof.StopCPUProfile()
	os.Exit(status)
}

func runScript(ctx context.Context, cfg kern.Config, file string) int {
	s, err := kshell.ReadScript(file)
	if err != nil {
		log.Fatal(err)
	}
	out, status, err := s.Run(ctx, cfg)
	os.Stdout.Write(out)
	if err != nil {
		log.Fatal(err)
	}
	if s.Want != nil && !bytes.Equal(out, s.Want) {
		log.Printf("%s: transcript does not match want:\n%s", file, s.Want)
		return 1
	}
	return status
}

// batch feeds standard input to the shell a line at a time.
func batch(ctx context.Context, cfg kern.Config) int {
	sh, err := kshell.New(cfg, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	go func() {
		scan := bufio.NewScanner(os.Stdin)
		for scan.Scan() {
			sh.Input([]byte(scan.Text() + "\n"))
		}
		if err := scan.Err(); err != nil {
			log.Printf("reading stdin: %v", err)
		}
		sh.Hangup()
	}()
	status, err := sh.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return status
}

// interactive runs the shell on a raw-mode terminal. The terminal does
// the echoing and line editing; the kernel's line discipline sees
// whole lines.
func interactive(ctx context.Context, cfg kern.Config) int {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatal(err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "wx> ")
	if cfg.Trace {
		cfg.Log = t
	}
	sh, err := kshell.New(cfg, t)
	if err != nil {
		term.Restore(fd, oldState)
		log.Fatal(err)
	}
	go func() {
		for {
			line, err := t.ReadLine()
			if err != nil {
				// ^D, or ^C at an empty prompt
				sh.Hangup()
				return
			}
			sh.Input([]byte(line + "\n"))
		}
	}()
	status, err := sh.Run(ctx)
	if err != nil {
		term.Restore(fd, oldState)
		log.Fatal(err)
	}
	return status
}
