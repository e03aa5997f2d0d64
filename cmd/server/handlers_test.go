package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/persistence/indexdb"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
)

func testDeps(t *testing.T, enableAdmin bool) httpDeps {
	t.Helper()
	m, err := multiworld.NewManager(multiworld.Config{
		DefaultWorld: "world",
		TickRateHz:   1000,
		Worlds: []multiworld.WorldSpec{
			{Name: "world", BoundaryR: 1000, BaseHeight: 63},
			{Name: "world_nether", BoundaryR: 500, BaseHeight: 31},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg, err := configstore.FromBytes(configstore.DefaultConfig())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "moves.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	ctrl := spawncycle.New(spawncycle.Options{
		Worlds:    m,
		Scheduler: m.LoopFor("world").Scheduler().Owner("spawncycle"),
		Config:    cfg,
		Messenger: m,
		Sinks:     []spawncycle.MoveSink{idx},
	})
	m.Route("world", world.Hooks{OnCommand: ctrl.HandleCommand})
	if err := ctrl.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return httpDeps{worlds: m, ctrl: ctrl, control: "world", idx: idx, enableAdmin: enableAdmin}
}

func serve(mux *http.ServeMux, method, path, body, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if remote != "" {
		req.RemoteAddr = remote
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	mux := newMux(testDeps(t, false))
	rr := serve(mux, http.MethodGet, "/healthz", "", "")
	if rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestAdminCommand_ForceMoveUpdatesMetrics(t *testing.T) {
	d := testDeps(t, true)
	mux := newMux(d)

	rr := serve(mux, http.MethodPost, "/admin/v1/command", `{"name":"forcespawnmove"}`, "127.0.0.1:5000")
	if rr.Code != 200 {
		t.Fatalf("command status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		OK    bool     `json:"ok"`
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Lines) != 1 || resp.Lines[0] != "Spawn updated using spiral mode!" {
		t.Fatalf("unexpected reply: %+v", resp)
	}

	rr = serve(mux, http.MethodGet, "/metrics", "", "")
	body := rr.Body.String()
	for _, want := range []string{
		`spawncycle_moves_total{world="world"} 1`,
		`spawncycle_dropped_triggers_total{world="world"} 0`,
		`spawncycle_sequence_position{world="world",field="spiral_radius"}`,
		`spawncycle_scheduled{world="world"} 1`,
		`spawncycle_world_tick{world="world_nether"}`,
		`spawncycle_index_queue_depth`,
		`spawncycle_known_players 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err := d.idx.RecentMoves(context.Background(), "world", 5)
		if err != nil {
			t.Fatalf("RecentMoves: %v", err)
		}
		if len(rows) == 1 {
			if rows[0].Reason != spawncycle.ReasonManual {
				t.Fatalf("reason=%q", rows[0].Reason)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("move not indexed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAdminCommand_Rejections(t *testing.T) {
	mux := newMux(testDeps(t, true))

	if rr := serve(mux, http.MethodGet, "/admin/v1/command", "", "127.0.0.1:5000"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: %d", rr.Code)
	}
	if rr := serve(mux, http.MethodPost, "/admin/v1/command", `{"name":"checkspawn"}`, "203.0.113.9:4000"); rr.Code != http.StatusForbidden {
		t.Fatalf("remote: %d", rr.Code)
	}
	if rr := serve(mux, http.MethodPost, "/admin/v1/command", `{}`, "127.0.0.1:5000"); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty name: %d", rr.Code)
	}
	if rr := serve(mux, http.MethodPost, "/admin/v1/command", `{"name":"gamemode"}`, "127.0.0.1:5000"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown command: %d", rr.Code)
	}
}

func TestAdminState(t *testing.T) {
	mux := newMux(testDeps(t, true))

	if rr := serve(mux, http.MethodGet, "/admin/v1/state", "", "203.0.113.9:4000"); rr.Code != http.StatusForbidden {
		t.Fatalf("remote: %d", rr.Code)
	}
	rr := serve(mux, http.MethodGet, "/admin/v1/state", "", "[::1]:5000")
	if rr.Code != 200 {
		t.Fatalf("state: %d", rr.Code)
	}
	var st struct {
		Control string       `json:"control_world"`
		Cycle   cycleState   `json:"cycle"`
		Worlds  []worldState `json:"worlds"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Control != "world" || !st.Cycle.Enabled || st.Cycle.Mode != "spiral" {
		t.Fatalf("unexpected cycle state: %+v", st)
	}
	if st.Cycle.Spiral != [2]int{1, 0} {
		t.Fatalf("spiral=%v", st.Cycle.Spiral)
	}
	if len(st.Worlds) != 2 || st.Worlds[0].Name != "world" || st.Worlds[1].Name != "world_nether" {
		t.Fatalf("worlds=%+v", st.Worlds)
	}
}

func TestAdminDisabled(t *testing.T) {
	mux := newMux(testDeps(t, false))
	if rr := serve(mux, http.MethodGet, "/admin/v1/state", "", "127.0.0.1:5000"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin disabled, got %d", rr.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080":   true,
		"[::1]:9000":       true,
		"::1":              true,
		"10.0.0.4:1234":    false,
		"example.com:80":   false,
		"":                 false,
		"192.0.2.1:1234":   false,
		"127.0.0.53:53000": true,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" Alex, ,steve ,")
	if len(got) != 2 || got[0] != "Alex" || got[1] != "steve" {
		t.Fatalf("splitList=%v", got)
	}
}

func TestDefaultEnableAdminHTTP(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin should default off in production")
	}
	t.Setenv("DEPLOY_ENV", "dev")
	if !defaultEnableAdminHTTP() {
		t.Fatalf("admin should default on outside staging/production")
	}
}
