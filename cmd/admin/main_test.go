package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	persistlog "spawncycle.ai/internal/persistence/log"
)

func TestFilterMoves(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []persistlog.MoveEntry{
		{At: t0.Format(time.RFC3339Nano), World: "world", Reason: "scheduled interval"},
		{At: t0.Add(time.Hour).Format(time.RFC3339Nano), World: "world", Reason: "player respawn"},
		{At: t0.Add(2 * time.Hour).Format(time.RFC3339Nano), World: "lobby", Reason: "player respawn"},
	}
	if got := filterMoves(in, "", "", time.Time{}); len(got) != 3 {
		t.Fatalf("no filter: %d", len(got))
	}
	if got := filterMoves(in, "world", "", time.Time{}); len(got) != 2 {
		t.Fatalf("world filter: %d", len(got))
	}
	if got := filterMoves(in, "", "Player Respawn", time.Time{}); len(got) != 2 {
		t.Fatalf("reason filter: %d", len(got))
	}
	got := filterMoves(in, "world", "", t0.Add(30*time.Minute))
	if len(got) != 1 || got[0].Reason != "player respawn" {
		t.Fatalf("since filter: %+v", got)
	}
}

func TestWriteProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfgText := strings.Join([]string{
		"world-name: world",
		"mode: square",
		"square_step: 10",
		"spawn_center:",
		"  x: 100",
		"  z: 200",
		"spiral:",
		"  radius: 6",
		"  angle: 90",
		"square:",
		"  layer: 1",
		"  stepIndex: 7",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(cfgText), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := configstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var buf bytes.Buffer
	if err := writeProgress(&buf, cfg, 2); err != nil {
		t.Fatalf("writeProgress: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"mode: square center: 100, 200",
		"spiral: radius=6 angle=90",
		"square: layer=1 stepIndex=7 (ring size 8)",
		// Ring 1 index 7 is the last left-edge cell, then ring 2 starts at its corner.
		"1: X=90 Z=200",
		"2: X=80 Z=180",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
