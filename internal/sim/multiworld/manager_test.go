package multiworld

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
)

func testManager(t *testing.T) (*Manager, context.Context) {
	t.Helper()
	m, err := NewManager(Config{
		DefaultWorld: "world",
		TickRateHz:   1000,
		Worlds: []WorldSpec{
			{Name: "world", BoundaryR: 1000, BaseHeight: 63},
			{Name: "world_nether", BoundaryR: 500, BaseHeight: 31},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return m, ctx
}

func TestManager_WorldsLookup(t *testing.T) {
	m, _ := testManager(t)
	if _, ok := m.World("world_nether"); !ok {
		t.Fatalf("expected nether")
	}
	if _, ok := m.World("world_the_end"); ok {
		t.Fatalf("unexpected world")
	}
	if w, ok := m.Resolve(""); !ok || w.Name() != "world" {
		t.Fatalf("Resolve(\"\") should return the default world")
	}
	var _ spawncycle.Worlds = m
	var _ spawncycle.Messenger = m
}

func TestManager_RouteForwardsToControlWorld(t *testing.T) {
	m, ctx := testManager(t)
	got := make(chan spawncycle.RespawnEvent, 4)
	cmd := make(chan string, 4)
	m.Route("world", world.Hooks{
		OnRespawn: func(ev spawncycle.RespawnEvent) { got <- ev },
		OnCommand: func(name string, args []string) ([]string, bool) {
			cmd <- name
			return []string{"handled " + name}, true
		},
	})
	go func() { _ = m.Run(ctx) }()

	nether := m.Runtime("world_nether")
	j, err := nether.Join(ctx, "piglin_fan", nil)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := nether.Respawn(ctx, j.PlayerID, false); err != nil {
		t.Fatalf("Respawn: %v", err)
	}
	select {
	case ev := <-got:
		if ev.Player != j.PlayerID {
			t.Fatalf("event=%+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("respawn not forwarded")
	}

	resp, err := nether.Command(ctx, "checkspawn", nil)
	if err != nil || !resp.OK || len(resp.Lines) != 1 || resp.Lines[0] != "handled checkspawn" {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if name := <-cmd; name != "checkspawn" {
		t.Fatalf("command=%q", name)
	}
}

func TestManager_BroadcastReachesAllWorlds(t *testing.T) {
	m, ctx := testManager(t)
	go func() { _ = m.Run(ctx) }()

	outs := map[string]chan []byte{}
	for _, name := range m.Names() {
		out := make(chan []byte, 2)
		if _, err := m.Runtime(name).Join(ctx, "p_"+name, out); err != nil {
			t.Fatalf("Join %s: %v", name, err)
		}
		outs[name] = out
	}
	m.Broadcast("spawn moved")
	for name, out := range outs {
		select {
		case <-out:
		case <-ctx.Done():
			t.Fatalf("%s: no broadcast", name)
		}
	}
}

func TestManager_RouteUnknownControlUsesDefaultLoop(t *testing.T) {
	m, ctx := testManager(t)
	if m.LoopFor("missing") != m.Default() {
		t.Fatalf("LoopFor should fall back to the default world")
	}
	cmd := make(chan string, 1)
	m.Route("missing", world.Hooks{OnCommand: func(name string, args []string) ([]string, bool) {
		cmd <- name
		return []string{"World not found."}, true
	}})
	go func() { _ = m.Run(ctx) }()

	resp, err := m.Runtime("world_nether").Command(ctx, "checkspawn", nil)
	if err != nil || !resp.OK || resp.Lines[0] != "World not found." {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if <-cmd != "checkspawn" {
		t.Fatalf("command not delivered")
	}
}

func TestManager_FirstJoinIsHostWide(t *testing.T) {
	m, ctx := testManager(t)
	go func() { _ = m.Run(ctx) }()

	r1, err := m.Runtime("world").Join(ctx, "alex", nil)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	m.Runtime("world").Leave(r1.PlayerID)
	r2, err := m.Runtime("world_nether").Join(ctx, "alex", nil)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !r1.FirstJoin || r2.FirstJoin {
		t.Fatalf("first joins: world=%v nether=%v", r1.FirstJoin, r2.FirstJoin)
	}
	if m.Players().Players() != 1 {
		t.Fatalf("players=%d", m.Players().Players())
	}
}

func TestManager_UseStoreRestoresHostState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg, err := configstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m, ctx := testManager(t)
	m.UseStore(cfg)
	go func() { _ = m.Run(ctx) }()

	if _, err := m.Runtime("world").Join(ctx, "alex", nil); err != nil {
		t.Fatalf("Join: %v", err)
	}
	moved := model.Vec3i{X: 12, Y: 66, Z: -9}
	if err := m.Runtime("world").RequestSetSpawn(ctx, moved); err != nil {
		t.Fatalf("RequestSetSpawn: %v", err)
	}

	reopened, err := configstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	next, _ := testManager(t)
	origin := next.Runtime("world").SpawnLocation()
	next.UseStore(reopened)
	if got := next.Runtime("world").SpawnLocation(); got != moved {
		t.Fatalf("restored spawn=%v want %v (origin %v)", got, moved, origin)
	}
	if _, ok := next.Players().Spawn("world_nether"); ok {
		t.Fatalf("nether spawn recorded without a move")
	}
	if !next.Players().Known("alex") || next.Players().Known("sam") {
		t.Fatalf("known players not restored")
	}
}
