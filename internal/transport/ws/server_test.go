package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"spawncycle.ai/internal/protocol"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
)

type harness struct {
	m   *multiworld.Manager
	url string
}

func newHarness(t *testing.T, opts Options, hooks world.Hooks) *harness {
	t.Helper()
	m, err := multiworld.NewManager(multiworld.Config{
		DefaultWorld: "world",
		TickRateHz:   1000,
		Worlds: []multiworld.WorldSpec{
			{Name: "world", BoundaryR: 1000, BaseHeight: 63},
			{Name: "world_nether", BoundaryR: 100, BaseHeight: 31},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Route("world", hooks)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = m.Run(ctx) }()

	srv := httptest.NewServer(NewServer(m, nil, opts).Handler())
	t.Cleanup(srv.Close)
	return &harness{m: m, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readType reads until a message of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read (waiting for %s): %v", typ, err)
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type != typ {
			continue
		}
		if err := json.Unmarshal(b, v); err != nil {
			t.Fatalf("unmarshal %s: %v", typ, err)
		}
		return
	}
}

func hello(t *testing.T, conn *websocket.Conn, name, worldName string) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: name, World: worldName})
	var w protocol.WelcomeMsg
	readType(t, conn, protocol.TypeWelcome, &w)
	return w
}

func TestServer_HelloWelcomeAndCommand(t *testing.T) {
	h := newHarness(t, Options{}, world.Hooks{
		OnCommand: func(name string, args []string) ([]string, bool) {
			if name != "checkspawn" {
				return nil, false
			}
			return []string{"Current world spawn coordinates: 0, 64, 0"}, true
		},
	})
	conn := dial(t, h.url)

	w := hello(t, conn, "alex", "")
	if !w.FirstJoin || w.World != "world" || w.Spawn != [3]int{0, 64, 0} || w.PlayerID == "" {
		t.Fatalf("welcome=%+v", w)
	}

	send(t, conn, protocol.CommandMsg{Type: protocol.TypeCommand, ProtocolVersion: protocol.Version, Name: "checkspawn"})
	var r protocol.ReplyMsg
	readType(t, conn, protocol.TypeReply, &r)
	if !r.OK || len(r.Lines) != 1 || r.Lines[0] != "Current world spawn coordinates: 0, 64, 0" {
		t.Fatalf("reply=%+v", r)
	}

	send(t, conn, protocol.CommandMsg{Type: protocol.TypeCommand, ProtocolVersion: protocol.Version, Name: "fly"})
	readType(t, conn, protocol.TypeReply, &r)
	if r.OK || r.Code != protocol.ErrUnknownCommand {
		t.Fatalf("reply=%+v", r)
	}
}

func TestServer_RespawnFiresHookAndReplies(t *testing.T) {
	events := make(chan spawncycle.RespawnEvent, 2)
	h := newHarness(t, Options{}, world.Hooks{
		OnRespawn: func(ev spawncycle.RespawnEvent) { events <- ev },
	})
	conn := dial(t, h.url)
	w := hello(t, conn, "sam", "world_nether")
	if w.World != "world_nether" {
		t.Fatalf("welcome world=%q", w.World)
	}

	send(t, conn, protocol.SetBedMsg{Type: protocol.TypeSetBed, ProtocolVersion: protocol.Version, Pos: &[3]int{3, 32, 4}})
	var r protocol.ReplyMsg
	readType(t, conn, protocol.TypeReply, &r)
	if !r.OK {
		t.Fatalf("set bed reply=%+v", r)
	}

	send(t, conn, protocol.RespawnMsg{Type: protocol.TypeRespawn, ProtocolVersion: protocol.Version})
	readType(t, conn, protocol.TypeReply, &r)
	if !r.OK || len(r.Lines) != 1 || r.Lines[0] != "Respawned at 3, 32, 4" {
		t.Fatalf("respawn reply=%+v", r)
	}
	select {
	case ev := <-events:
		if ev.Player != w.PlayerID || !ev.HasBed {
			t.Fatalf("event=%+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("respawn hook not called")
	}
}

func TestServer_SetSpawnAndBroadcast(t *testing.T) {
	changes := make(chan spawncycle.SpawnChangeEvent, 1)
	h := newHarness(t, Options{}, world.Hooks{
		OnSpawnChange: func(ev spawncycle.SpawnChangeEvent) { changes <- ev },
	})
	conn := dial(t, h.url)
	hello(t, conn, "op", "")

	send(t, conn, protocol.SetSpawnMsg{Type: protocol.TypeSetSpawn, ProtocolVersion: protocol.Version, Pos: [3]int{500, 70, -300}})
	var r protocol.ReplyMsg
	readType(t, conn, protocol.TypeReply, &r)
	if !r.OK {
		t.Fatalf("reply=%+v", r)
	}
	if ev := <-changes; ev.Pos.X != 500 || ev.World != "world" {
		t.Fatalf("event=%+v", ev)
	}

	h.m.Broadcast("Spawn moved")
	var b protocol.BroadcastMsg
	readType(t, conn, protocol.TypeBroadcast, &b)
	if b.Text != "Spawn moved" {
		t.Fatalf("broadcast=%+v", b)
	}
}

func TestServer_OperatorsOnly(t *testing.T) {
	h := newHarness(t, Options{Operators: []string{"Admin"}}, world.Hooks{
		OnCommand: func(string, []string) ([]string, bool) { return []string{"ok"}, true },
	})
	guest := dial(t, h.url)
	hello(t, guest, "guest", "")
	send(t, guest, protocol.CommandMsg{Type: protocol.TypeCommand, ProtocolVersion: protocol.Version, Name: "checkspawn"})
	var r protocol.ReplyMsg
	readType(t, guest, protocol.TypeReply, &r)
	if r.OK || r.Code != protocol.ErrNoPermission {
		t.Fatalf("guest reply=%+v", r)
	}

	admin := dial(t, h.url)
	hello(t, admin, "admin", "")
	send(t, admin, protocol.CommandMsg{Type: protocol.TypeCommand, ProtocolVersion: protocol.Version, Name: "checkspawn"})
	readType(t, admin, protocol.TypeReply, &r)
	if !r.OK {
		t.Fatalf("admin reply=%+v", r)
	}
}

func TestServer_RejectsBadHandshake(t *testing.T) {
	h := newHarness(t, Options{}, world.Hooks{})

	conn := dial(t, h.url)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", PlayerName: "x"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}

	conn2 := dial(t, h.url)
	send(t, conn2, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: "x", World: "world_the_end"})
	var r protocol.ReplyMsg
	readType(t, conn2, protocol.TypeReply, &r)
	if r.OK || r.Code != protocol.ErrWorldNotFound {
		t.Fatalf("reply=%+v", r)
	}
}
