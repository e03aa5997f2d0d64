package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle/policy"
)

func testView(t *testing.T, n int) *view {
	t.Helper()
	cfg, err := configstore.FromBytes(configstore.DefaultConfig())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	v, err := loadView(cfg, n)
	if err != nil {
		t.Fatalf("loadView: %v", err)
	}
	return v
}

func simScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func rowText(s tcell.Screen, y, w int) string {
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestLoadView_DefaultsToSpiral(t *testing.T) {
	v := testView(t, 4)
	if v.settings.Mode != policy.ModeSpiral || len(v.points) != 4 {
		t.Fatalf("mode=%s points=%d", v.settings.Mode, len(v.points))
	}
	if v.points[0] != (model.Center{X: 1, Z: 0}) {
		t.Fatalf("first point=%+v", v.points[0])
	}
}

func TestView_ResizeClamps(t *testing.T) {
	v := testView(t, 4)
	v.resize(0)
	if v.count != 1 || len(v.points) != 1 {
		t.Fatalf("count=%d points=%d", v.count, len(v.points))
	}
	v.resize(maxPoints * 2)
	if v.count != maxPoints {
		t.Fatalf("count=%d", v.count)
	}
}

func TestView_ToggleMode(t *testing.T) {
	v := testView(t, 2)
	v.toggleMode()
	if v.settings.Mode != policy.ModeSquare {
		t.Fatalf("mode=%s", v.settings.Mode)
	}
	if v.points[0] != (model.Center{X: 8, Z: 8}) {
		t.Fatalf("square first point=%+v", v.points[0])
	}
	v.toggleMode()
	if v.settings.Mode != policy.ModeSpiral {
		t.Fatalf("mode=%s", v.settings.Mode)
	}
}

func TestView_BlocksPerCellFitsPoints(t *testing.T) {
	v := testView(t, 1)
	v.points = []model.Center{{X: 100, Z: -10}}
	if got := v.blocksPerCell(20, 10); got != 10 {
		t.Fatalf("scale=%d", got)
	}
	v.points = nil
	if got := v.blocksPerCell(20, 10); got != 1 {
		t.Fatalf("empty scale=%d", got)
	}
}

func TestRender_DrawsHeaderAndCenter(t *testing.T) {
	s := simScreen(t, 61, 23)
	v := testView(t, 3)
	render(s, v)

	if got := rowText(s, 0, 61); !strings.HasPrefix(got, "mode: spiral  center: 0, 0") {
		t.Fatalf("header=%q", got)
	}
	if got := rowText(s, 2, 61); !strings.HasPrefix(got, "next: X=1 Z=0") {
		t.Fatalf("next line=%q", got)
	}
	// Plot is 60x19 with scale 1: origin at (30, 3+9).
	if r, _, _, _ := s.GetContent(30, 12); r != '+' {
		t.Fatalf("center rune=%q", r)
	}
	if r, _, _, _ := s.GetContent(31, 12); r != '@' {
		t.Fatalf("next point rune=%q", r)
	}
}
