package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"spawncycle.ai/internal/persistence/indexdb"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/spawncycle"
)

type httpDeps struct {
	worlds      *multiworld.Manager
	ctrl        *spawncycle.Controller
	control     string
	idx         *indexdb.SQLiteIndex
	enableAdmin bool
	enablePprof bool
	ws          http.Handler
}

func newMux(d httpDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d)
	})
	if d.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(adminState(r.Context(), d))
		})
		mux.HandleFunc("/admin/v1/command", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			var req struct {
				Name string   `json:"name"`
				Args []string `json:"args"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
				http.Error(rw, "bad request", http.StatusBadRequest)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			resp, err := d.worlds.LoopFor(d.control).Command(ctx2, req.Name, req.Args)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			if !resp.OK {
				rw.WriteHeader(http.StatusNotFound)
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": resp.OK, "lines": resp.Lines})
		})
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	if d.ws != nil {
		mux.Handle("/v1/ws", d.ws)
	}
	return mux
}

type worldState struct {
	Name    string         `json:"name"`
	Tick    uint64         `json:"tick"`
	Spawn   [3]int         `json:"spawn"`
	Players int            `json:"players"`
	Online  int            `json:"online"`
	Chunks  int            `json:"loaded_chunks"`
	Jobs    map[string]int `json:"scheduled_jobs,omitempty"`
}

type moveState struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
	World  string    `json:"world"`
	Pos    [3]int    `json:"pos"`
}

type cycleState struct {
	Enabled   bool       `json:"enabled"`
	Mode      string     `json:"mode"`
	Center    [2]int     `json:"center"`
	Spiral    [2]int     `json:"spiral"`
	Square    [2]int     `json:"square"`
	Scheduled bool       `json:"scheduled"`
	Moves     uint64     `json:"moves"`
	Dropped   uint64     `json:"dropped"`
	Failed    uint64     `json:"failed"`
	LastMove  *moveState `json:"last_move,omitempty"`
}

func adminState(ctx context.Context, d httpDeps) map[string]any {
	st := d.ctrl.Status()
	cs := cycleState{
		Enabled:   st.Enabled,
		Mode:      string(st.Mode),
		Center:    [2]int{st.Center.X, st.Center.Z},
		Spiral:    [2]int{st.Spiral.Radius, st.Spiral.Angle},
		Square:    [2]int{st.Square.Ring, st.Square.StepIndex},
		Scheduled: st.Scheduled,
		Moves:     st.Moves,
		Dropped:   st.Dropped,
		Failed:    st.Failed,
	}
	if m := st.LastMove; m != nil {
		cs.LastMove = &moveState{At: m.At, Reason: m.Reason, World: m.Point.World, Pos: m.Point.Pos.ToArray()}
	}

	var worlds []worldState
	for _, name := range d.worlds.Names() {
		ctx2, cancel2 := context.WithTimeout(ctx, 2*time.Second)
		ws, err := d.worlds.Runtime(name).Status(ctx2)
		cancel2()
		if err != nil {
			worlds = append(worlds, worldState{Name: name, Spawn: d.worlds.Runtime(name).SpawnLocation().ToArray()})
			continue
		}
		worlds = append(worlds, worldState{
			Name:    ws.Name,
			Tick:    ws.Tick,
			Spawn:   ws.Spawn.ToArray(),
			Players: ws.Players,
			Online:  ws.Online,
			Chunks:  ws.LoadedChunks,
			Jobs:    ws.ScheduledJobs,
		})
	}
	return map[string]any{
		"control_world": d.control,
		"cycle":         cs,
		"worlds":        worlds,
	}
}

func writeMetrics(rw http.ResponseWriter, d httpDeps) {
	st := d.ctrl.Status()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP spawncycle_moves_total Spawn moves applied since start.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_moves_total counter\n")
	fmt.Fprintf(rw, "spawncycle_moves_total{world=%q} %d\n", d.control, st.Moves)

	fmt.Fprintf(rw, "# HELP spawncycle_dropped_triggers_total Triggers dropped by the update guard.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_dropped_triggers_total counter\n")
	fmt.Fprintf(rw, "spawncycle_dropped_triggers_total{world=%q} %d\n", d.control, st.Dropped)

	fmt.Fprintf(rw, "# HELP spawncycle_failed_moves_total Spawn moves aborted by world errors.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_failed_moves_total counter\n")
	fmt.Fprintf(rw, "spawncycle_failed_moves_total{world=%q} %d\n", d.control, st.Failed)

	fmt.Fprintf(rw, "# HELP spawncycle_sequence_position Current sequencer position.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_sequence_position gauge\n")
	fmt.Fprintf(rw, "spawncycle_sequence_position{world=%q,field=%q} %d\n", d.control, "spiral_radius", st.Spiral.Radius)
	fmt.Fprintf(rw, "spawncycle_sequence_position{world=%q,field=%q} %d\n", d.control, "spiral_angle", st.Spiral.Angle)
	fmt.Fprintf(rw, "spawncycle_sequence_position{world=%q,field=%q} %d\n", d.control, "square_ring", st.Square.Ring)
	fmt.Fprintf(rw, "spawncycle_sequence_position{world=%q,field=%q} %d\n", d.control, "square_step", st.Square.StepIndex)

	scheduled := 0
	if st.Scheduled {
		scheduled = 1
	}
	fmt.Fprintf(rw, "# HELP spawncycle_scheduled Whether interval updates are scheduled.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_scheduled gauge\n")
	fmt.Fprintf(rw, "spawncycle_scheduled{world=%q} %d\n", d.control, scheduled)

	fmt.Fprintf(rw, "# HELP spawncycle_known_players Players that have joined any world.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_known_players gauge\n")
	fmt.Fprintf(rw, "spawncycle_known_players %d\n", d.worlds.Players().Players())

	fmt.Fprintf(rw, "# HELP spawncycle_world_spawn Current world spawn coordinate.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_world_spawn gauge\n")
	for _, name := range d.worlds.Names() {
		p := d.worlds.Runtime(name).SpawnLocation()
		fmt.Fprintf(rw, "spawncycle_world_spawn{world=%q,axis=\"x\"} %d\n", name, p.X)
		fmt.Fprintf(rw, "spawncycle_world_spawn{world=%q,axis=\"y\"} %d\n", name, p.Y)
		fmt.Fprintf(rw, "spawncycle_world_spawn{world=%q,axis=\"z\"} %d\n", name, p.Z)
	}

	fmt.Fprintf(rw, "# HELP spawncycle_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE spawncycle_world_tick gauge\n")
	for _, name := range d.worlds.Names() {
		fmt.Fprintf(rw, "spawncycle_world_tick{world=%q} %d\n", name, d.worlds.Runtime(name).CurrentTick())
	}

	if d.idx != nil {
		s := d.idx.Stats()
		fmt.Fprintf(rw, "# HELP spawncycle_index_queue_depth Move index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE spawncycle_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "spawncycle_index_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP spawncycle_index_dropped_total Moves dropped because the index fell behind.\n")
		fmt.Fprintf(rw, "# TYPE spawncycle_index_dropped_total counter\n")
		fmt.Fprintf(rw, "spawncycle_index_dropped_total %d\n", s.DropMoveTotal)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
