package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	persistlog "spawncycle.ai/internal/persistence/log"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "progress":
			progressCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "command":
			commandCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the audit files present in the data dir.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(persistlog.AuditDir(*dataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	world := fs.String("world", "", "world filter (optional)")
	reason := fs.String("reason", "", "reason filter (optional)")
	since := fs.String("since", "", "only moves at or after this RFC3339 time (optional)")
	_ = fs.Parse(args)

	var from time.Time
	if s := strings.TrimSpace(*since); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		from = t
	}

	entries, err := persistlog.ReadMoves(persistlog.AuditDir(*dataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range filterMoves(entries, *world, *reason, from) {
		_ = enc.Encode(e)
	}
}

func filterMoves(in []persistlog.MoveEntry, world, reason string, since time.Time) []persistlog.MoveEntry {
	world = strings.TrimSpace(world)
	reason = strings.TrimSpace(reason)
	out := make([]persistlog.MoveEntry, 0, len(in))
	for _, e := range in {
		if world != "" && e.World != world {
			continue
		}
		if reason != "" && !strings.EqualFold(e.Reason, reason) {
			continue
		}
		if !since.IsZero() {
			at, err := time.Parse(time.RFC3339Nano, e.At)
			if err != nil || at.Before(since) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// progressCmd prints the persisted progression from config.yml and the
// columns the next updates would target.
func progressCmd(args []string) {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	configPath := fs.String("config", "./configs/config.yml", "spawn cycle config path")
	next := fs.Int("next", 5, "number of upcoming points to list")
	_ = fs.Parse(args)

	if _, err := os.Stat(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg, err := configstore.Open(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := writeProgress(os.Stdout, cfg, *next); err != nil {
		fmt.Fprintln(os.Stderr, "progress:", err)
		os.Exit(1)
	}
}

func writeProgress(w io.Writer, cfg *configstore.Store, n int) error {
	st := spawncycle.ConfigState{Config: cfg}
	sp, err := st.LoadSpiral()
	if err != nil {
		return err
	}
	sq, err := st.LoadSquare()
	if err != nil {
		return err
	}
	settings := spawncycle.LoadSettings(cfg, log.New(io.Discard, "", 0))

	fmt.Fprintf(w, "config: %s\n", filepath.Clean(cfg.Path()))
	fmt.Fprintf(w, "world: %s mode: %s center: %d, %d\n", settings.WorldName, settings.Mode, settings.Center.X, settings.Center.Z)
	fmt.Fprintf(w, "spiral: radius=%d angle=%d\n", sp.Radius, sp.Angle)
	fmt.Fprintf(w, "square: layer=%d stepIndex=%d (ring size %d)\n", sq.Ring, sq.StepIndex, square.PerimeterLen(sq.Ring))
	if n > 0 {
		fmt.Fprintf(w, "next %d points:\n", n)
		for i, p := range spawncycle.Preview(settings, sp, sq, n) {
			fmt.Fprintf(w, "  %d: X=%d Z=%d\n", i+1, p.X, p.Z)
		}
	}
	return nil
}
