package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
	"spawncycle.ai/internal/sim/world/logic/mathx"
)

const (
	headerRows = 3
	maxPoints  = 512
)

var (
	styleHeader = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleCenter = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleNext   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	stylePoint  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
)

type view struct {
	settings spawncycle.Settings
	spiral   spiral.State
	square   square.State
	count    int
	points   []model.Center
}

func (v *view) resize(n int) {
	if n < 1 {
		n = 1
	}
	if n > maxPoints {
		n = maxPoints
	}
	v.count = n
	v.points = spawncycle.Preview(v.settings, v.spiral, v.square, n)
}

// blocksPerCell picks the smallest scale that fits every point inside a
// w x h plot centered on the cycle origin.
func (v *view) blocksPerCell(w, h int) int {
	halfW, halfH := w/2, h/2
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}
	scale := 1
	for _, p := range v.points {
		dx := mathx.AbsInt(p.X - v.settings.Center.X)
		dz := mathx.AbsInt(p.Z - v.settings.Center.Z)
		if s := (dx + halfW - 1) / halfW; s > scale {
			scale = s
		}
		if s := (dz + halfH - 1) / halfH; s > scale {
			scale = s
		}
	}
	return scale
}

// cell maps a world column to plot coordinates.
func (v *view) cell(p model.Center, w, h, scale int) (col, row int) {
	col = w/2 + mathx.FloorDiv(p.X-v.settings.Center.X, scale)
	row = headerRows + h/2 + mathx.FloorDiv(p.Z-v.settings.Center.Z, scale)
	return col, row
}

func render(s tcell.Screen, v *view) {
	s.Clear()
	w, h := s.Size()
	plotH := h - headerRows
	if plotH < 1 {
		plotH = 1
	}

	scale := v.blocksPerCell(w-1, plotH-1)
	putString(s, 0, 0, fmt.Sprintf("mode: %s  center: %d, %d  scale: %d blocks/cell",
		v.settings.Mode, v.settings.Center.X, v.settings.Center.Z, scale), styleHeader)
	putString(s, 0, 1, fmt.Sprintf("spiral r=%d a=%d  square layer=%d step=%d  next %d",
		v.spiral.Radius, v.spiral.Angle, v.square.Ring, v.square.StepIndex, v.count), styleHeader)
	if len(v.points) > 0 {
		n := v.points[0]
		putString(s, 0, 2, fmt.Sprintf("next: X=%d Z=%d   [m] mode [+/-] count [r] reload [q] quit", n.X, n.Z), styleHeader)
	}

	for i := len(v.points) - 1; i >= 0; i-- {
		col, row := v.cell(v.points[i], w-1, plotH-1, scale)
		if col < 0 || col >= w || row < headerRows || row >= h {
			continue
		}
		ch, st := '·', stylePoint
		if i == 0 {
			ch, st = '@', styleNext
		}
		s.SetContent(col, row, ch, nil, st)
	}
	col, row := v.cell(model.Center{X: v.settings.Center.X, Z: v.settings.Center.Z}, w-1, plotH-1, scale)
	if row >= headerRows && row < h && col >= 0 && col < w {
		s.SetContent(col, row, '+', nil, styleCenter)
	}
	s.Show()
}

func putString(s tcell.Screen, x, y int, text string, st tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, st)
		x++
	}
}
