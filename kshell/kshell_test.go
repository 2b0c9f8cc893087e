// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kshell

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rsc.io/weenix/kern"
)

// exit statuses of scripts that do not simply run out of input
var scriptStatus = map[string]int{
	"basic": 7,
	"sleep": 4,
}

func TestScripts(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no scripts")
	}
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".txt")
		t.Run(name, func(t *testing.T) {
			s, err := ReadScript(file)
			if err != nil {
				t.Fatal(err)
			}
			out, status, err := run(t, s)
			if err != nil {
				t.Fatalf("run: %v\n%s", err, out)
			}
			if string(out) != string(s.Want) {
				t.Errorf("have:\n%s\nwant:\n%s", out, s.Want)
			}
			if want := scriptStatus[name]; status != want {
				t.Errorf("exit status %d, want %d", status, want)
			}
		})
	}
}

func run(t *testing.T, s *Script) ([]byte, int, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Run(ctx, kern.Config{})
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript("x", []byte("maxprocs=9\ntick=5ms\n# note\n-- script --\necho hi\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Want != nil {
		t.Errorf("Want = %q, want nil", s.Want)
	}
	var cfg kern.Config
	s.Tune(&cfg)
	if cfg.MaxProcs != 9 || cfg.Tick != 5*time.Millisecond {
		t.Errorf("tunables gave %+v", cfg)
	}

	for _, bad := range []string{
		"-- want --\nx\n",
		"-- script --\n-- other --\n",
		"maxprocs\n-- script --\n",
		"maxprocs=lots\n-- script --\n",
		"color=red\n-- script --\n",
		"tick=soon\n-- script --\n",
	} {
		if _, err := ParseScript("bad", []byte(bad)); err == nil {
			t.Errorf("ParseScript(%q) succeeded", bad)
		}
	}
}

func TestHelp(t *testing.T) {
	s, _ := ParseScript("help", []byte("-- script --\nhelp\n"))
	out, _, err := run(t, s)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range commands {
		if !strings.Contains(string(out), "\n"+c.name) {
			t.Errorf("help does not mention %s:\n%s", c.name, out)
		}
	}
}

func TestTree(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tree.png")
	s, _ := ParseScript("tree", []byte("-- script --\nsleep a\nspawn b\ntree "+file+"\nyield\nwake\nwait\nwait\n"))
	out, _, err := run(t, s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "kshell:") {
		t.Fatalf("tree failed:\n%s", out)
	}
	f, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	// idle over init over two leaves
	w, h := treeSize(2, 2)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("background is not white")
	}
}
