// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kshell

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"rsc.io/weenix/kern"
)

const (
	boxW = 120
	boxH = 32
	gapX = 20
	gapY = 40
)

type treeBox struct {
	p     *kern.Proc
	col   float64 // column of the box center
	depth int
}

// layoutTree places every process reachable from root: leaves take
// consecutive columns and a parent sits centered over its children.
// It returns the boxes, the parent-child edges as index pairs, the
// number of columns and the depth of the tree.
func layoutTree(root *kern.Proc) (boxes []treeBox, edges [][2]int, ncol, depth int) {
	var place func(p *kern.Proc, d int) int
	place = func(p *kern.Proc, d int) int {
		i := len(boxes)
		boxes = append(boxes, treeBox{p: p, depth: d})
		depth = max(depth, d)
		kids := p.Children()
		if len(kids) == 0 {
			boxes[i].col = float64(ncol)
			ncol++
			return i
		}
		var first, last float64
		for j, c := range kids {
			ci := place(c, d+1)
			edges = append(edges, [2]int{i, ci})
			if j == 0 {
				first = boxes[ci].col
			}
			last = boxes[ci].col
		}
		boxes[i].col = (first + last) / 2
		return i
	}
	place(root, 0)
	return boxes, edges, ncol, depth
}

// DrawTree draws the process tree of k, starting at idle, as a PNG
// image on w. Dead processes are drawn grey. It must be called from a
// kernel thread or after the kernel has halted.
func DrawTree(k *kern.Kernel, w io.Writer) error {
	idle := k.Idle()
	if idle == nil {
		return fmt.Errorf("kshell: kernel not started")
	}
	boxes, edges, ncol, depth := layoutTree(idle)
	width, height := treeSize(ncol, depth)
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	center := func(b treeBox) (x, y float64) {
		x = gapX + b.col*(boxW+gapX) + boxW/2
		y = gapY/2 + float64(b.depth)*(boxH+gapY) + boxH/2
		return x, y
	}

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.SetLineWidth(2)
	for _, e := range edges {
		px, py := center(boxes[e[0]])
		cx, cy := center(boxes[e[1]])
		dc.DrawLine(px, py+boxH/2, cx, cy-boxH/2)
		dc.Stroke()
	}

	for _, b := range boxes {
		x, y := center(b)
		dc.DrawRoundedRectangle(x-boxW/2, y-boxH/2, boxW, boxH, 6)
		if b.p.State() == kern.ProcDead {
			dc.SetRGB(0.8, 0.8, 0.8)
		} else {
			dc.SetRGB(0.75, 0.85, 1)
		}
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.Stroke()
		dc.DrawStringAnchored(b.p.String(), x, y, 0.5, 0.5)
	}
	return dc.EncodePNG(w)
}

func treeSize(ncol, depth int) (width, height int) {
	return gapX + ncol*(boxW+gapX), (depth + 1) * (boxH + gapY)
}
