package worldtest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/protocol"
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
)

// Harness drives a running multi-world host with a spawn cycle controller
// attached, through exported APIs only:
// - Join/Respawn/SetBed go through the world loops like a client would
// - Command runs on the control world's loop
// - Moves records every applied relocation
type Harness struct {
	T      *testing.T
	M      *multiworld.Manager
	Ctrl   *spawncycle.Controller
	Config *configstore.Store
	Moves  *Recorder

	control string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

type Options struct {
	// ConfigPath backs the controller config with a file; empty uses the
	// built-in defaults in memory.
	ConfigPath string
	// Settings are applied on top of the config before Enable.
	Settings map[string]any
	// Worlds defaults to an overworld "world" and a "world_nether".
	Worlds *multiworld.Config
}

func DefaultWorlds() multiworld.Config {
	return multiworld.Config{
		DefaultWorld: "world",
		TickRateHz:   1000,
		Worlds: []multiworld.WorldSpec{
			{Name: "world", BoundaryR: 5000, BaseHeight: 63, Amplitude: 8},
			{Name: "world_nether", BoundaryR: 1000, BaseHeight: 31},
		},
	}
}

func New(t *testing.T, opts Options) *Harness {
	t.Helper()

	wcfg := DefaultWorlds()
	if opts.Worlds != nil {
		wcfg = *opts.Worlds
	}
	m, err := multiworld.NewManager(wcfg, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var cfg *configstore.Store
	if opts.ConfigPath != "" {
		cfg, err = configstore.Open(opts.ConfigPath)
	} else {
		cfg, err = configstore.FromBytes(configstore.DefaultConfig())
	}
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for k, v := range opts.Settings {
		cfg.Set(k, v)
	}
	m.UseStore(cfg)

	control := cfg.GetString(spawncycle.KeyWorldName, "world")
	rec := &Recorder{}
	ctrl := spawncycle.New(spawncycle.Options{
		Worlds:    m,
		Scheduler: m.LoopFor(control).Scheduler().Owner("spawncycle"),
		Config:    cfg,
		Messenger: m,
		Sinks:     []spawncycle.MoveSink{rec},
	})
	m.Route(control, world.Hooks{
		OnJoin:        func(ev spawncycle.JoinEvent) { ctrl.OnJoin(ev) },
		OnRespawn:     func(ev spawncycle.RespawnEvent) { ctrl.OnRespawn(ev) },
		OnSpawnChange: func(ev spawncycle.SpawnChangeEvent) { ctrl.OnSpawnChange(ev) },
		OnCommand:     ctrl.HandleCommand,
	})
	_ = ctrl.Enable()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	h := &Harness{
		T:       t,
		M:       m,
		Ctrl:    ctrl,
		Config:  cfg,
		Moves:   rec,
		control: control,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(h.Close)
	return h
}

// Close stops every world loop and then disables the controller, which
// saves progression. Safe to call more than once.
func (h *Harness) Close() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
		h.Ctrl.Disable()
	})
}

type Session struct {
	PlayerID  string
	FirstJoin bool
	Spawn     model.Vec3i
	World     string
	Out       chan []byte
}

func (h *Harness) runtime(name string) *world.World {
	h.T.Helper()
	w, ok := h.M.Resolve(name)
	if !ok {
		h.T.Fatalf("unknown world %q", name)
	}
	return w
}

func (h *Harness) Join(worldName, player string) *Session {
	h.T.Helper()
	w := h.runtime(worldName)
	out := make(chan []byte, 64)
	resp, err := w.Join(h.ctx, player, out)
	if err != nil {
		h.T.Fatalf("join %s: %v", player, err)
	}
	return &Session{PlayerID: resp.PlayerID, FirstJoin: resp.FirstJoin, Spawn: resp.Spawn, World: w.Name(), Out: out}
}

func (h *Harness) Leave(s *Session) {
	h.runtime(s.World).Leave(s.PlayerID)
}

func (h *Harness) Respawn(s *Session, hasBed bool) model.Vec3i {
	h.T.Helper()
	at, err := h.runtime(s.World).Respawn(h.ctx, s.PlayerID, hasBed)
	if err != nil {
		h.T.Fatalf("respawn %s: %v", s.PlayerID, err)
	}
	return at
}

func (h *Harness) SetBed(s *Session, bed *model.Vec3i) {
	h.T.Helper()
	if err := h.runtime(s.World).SetBed(h.ctx, s.PlayerID, bed); err != nil {
		h.T.Fatalf("set bed: %v", err)
	}
}

// Command runs on the control loop. Because events forwarded from other
// worlds are queued on the same loop, a Command also acts as a barrier for
// them.
func (h *Harness) Command(name string, args ...string) world.CommandResponse {
	h.T.Helper()
	resp, err := h.M.LoopFor(h.control).Command(h.ctx, name, args)
	if err != nil {
		h.T.Fatalf("command %s: %v", name, err)
	}
	return resp
}

// Sync waits until everything queued on the control loop so far has run.
func (h *Harness) Sync() {
	h.T.Helper()
	h.Command("checkspawn")
}

func (h *Harness) Spawn(worldName string) model.Vec3i {
	return h.runtime(worldName).SpawnLocation()
}

// WaitMoves blocks until at least n moves were recorded.
func (h *Harness) WaitMoves(n int) []spawncycle.Move {
	h.T.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		got := h.Moves.All()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			h.T.Fatalf("timed out waiting for %d moves (have %d)", n, len(got))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// WaitBroadcast returns the next BROADCAST text delivered to s.
func (h *Harness) WaitBroadcast(s *Session) string {
	h.T.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case b := <-s.Out:
			base, err := protocol.DecodeBase(b)
			if err != nil || base.Type != protocol.TypeBroadcast {
				continue
			}
			var msg protocol.BroadcastMsg
			if err := json.Unmarshal(b, &msg); err != nil {
				h.T.Fatalf("decode broadcast: %v", err)
			}
			return msg.Text
		case <-timeout:
			h.T.Fatalf("no broadcast for %s", s.PlayerID)
			return ""
		}
	}
}

// Recorder is a MoveSink that keeps every move in memory.
type Recorder struct {
	mu    sync.Mutex
	moves []spawncycle.Move
}

func (r *Recorder) RecordMove(m spawncycle.Move) {
	r.mu.Lock()
	r.moves = append(r.moves, m)
	r.mu.Unlock()
}

func (r *Recorder) All() []spawncycle.Move {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]spawncycle.Move(nil), r.moves...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.moves)
}
