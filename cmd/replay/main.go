package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "spawncycle.ai/internal/persistence/log"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/spawncycle/policy"
	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

// replay walks the move audit log and checks that every recorded sequencer
// state follows from the one before it.
func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		auditDir = flag.String("audit", "", "audit dir containing moves-*.jsonl.zst (default: <data>/audit)")
		world    = flag.String("world", "", "only check this world (optional)")
		strict   = flag.Bool("strict", false, "treat cycle restarts without a manual reset as errors")
	)
	flag.Parse()

	dir := strings.TrimSpace(*auditDir)
	if dir == "" {
		dir = persistlog.AuditDir(*dataDir)
	}
	entries, err := persistlog.ReadMoves(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no moves found in", filepath.Clean(dir))
		os.Exit(1)
	}

	rep := check(entries, *world)
	rep.write(os.Stdout)
	if len(rep.Breaks) > 0 || (*strict && rep.Restarts > 0) {
		os.Exit(1)
	}
}

type report struct {
	Moves    int
	Restarts int
	ByReason map[string]int
	Breaks   []string
}

func check(entries []persistlog.MoveEntry, world string) report {
	rep := report{ByReason: map[string]int{}}
	prev := map[string]persistlog.MoveEntry{}
	for i, e := range entries {
		if world != "" && e.World != world {
			continue
		}
		rep.Moves++
		rep.ByReason[e.Reason]++

		p, seen := prev[e.World]
		prev[e.World] = e
		if !seen {
			continue
		}

		want, fresh, got := expected(p, e)
		switch {
		case got == want:
		case got == fresh && e.Reason == spawncycle.ReasonManualReset:
		case got == fresh:
			// A fresh cycle without a reset comes from an external spawn
			// change or a center reload.
			rep.Restarts++
		default:
			rep.Breaks = append(rep.Breaks, fmt.Sprintf("entry %d (%s, %s): %s state %v, want %v",
				i, e.At, e.Reason, e.Mode, got, want))
		}
	}
	return rep
}

// expected returns the successor of prev's state for e's mode, the state
// right after a cycle restart, and e's recorded state.
func expected(prev, e persistlog.MoveEntry) (want, fresh, got [2]int) {
	if policy.Mode(e.Mode) == policy.ModeSquare {
		s := square.State{Ring: prev.SquareLayer, StepIndex: prev.SquareStep}.Succ()
		f := square.State{}.Succ()
		return [2]int{s.Ring, s.StepIndex}, [2]int{f.Ring, f.StepIndex}, [2]int{e.SquareLayer, e.SquareStep}
	}
	s := spiral.State{Radius: prev.SpiralRadius, Angle: prev.SpiralAngle}.Succ()
	f := spiral.Initial().Succ()
	return [2]int{s.Radius, s.Angle}, [2]int{f.Radius, f.Angle}, [2]int{e.SpiralRadius, e.SpiralAngle}
}

func (r report) write(w io.Writer) {
	reasons := make([]string, 0, len(r.ByReason))
	for k := range r.ByReason {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	for _, k := range reasons {
		fmt.Fprintf(w, "%-20s %d\n", k, r.ByReason[k])
	}
	for _, b := range r.Breaks {
		fmt.Fprintln(w, "break:", b)
	}
	if len(r.Breaks) > 0 {
		fmt.Fprintf(w, "replay FAILED: moves=%d restarts=%d breaks=%d\n", r.Moves, r.Restarts, len(r.Breaks))
		return
	}
	fmt.Fprintf(w, "replay ok: moves=%d restarts=%d\n", r.Moves, r.Restarts)
}
