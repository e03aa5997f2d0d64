package configstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins", "config.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if got := s.GetString("world-name", ""); got != "world" {
		t.Fatalf("world-name=%q", got)
	}
	if got := s.GetString("update_interval", ""); got != "daily" {
		t.Fatalf("update_interval=%q", got)
	}
	if !s.GetBool("update_on_new_player_join", false) {
		t.Fatalf("update_on_new_player_join default")
	}
	if got := s.GetInt("spiral.radius", 0); got != 1 {
		t.Fatalf("spiral.radius=%d", got)
	}
	if !strings.Contains(s.GetString("broadcast_message_template", ""), "{reason}") {
		t.Fatalf("template missing placeholders")
	}
}

func TestSetPersistReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Set("square.layer", 4)
	s.Set("square.stepIndex", 17)
	s.Set("brand.new.section", "x")
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.GetInt("square.layer", -1) != 4 || again.GetInt("square.stepIndex", -1) != 17 {
		t.Fatalf("square=%d/%d", again.GetInt("square.layer", -1), again.GetInt("square.stepIndex", -1))
	}
	if again.GetString("brand.new.section", "") != "x" {
		t.Fatalf("nested set lost")
	}
	if again.GetString("mode", "") != "spiral" {
		t.Fatalf("untouched keys lost")
	}
}

func TestTypedGettersCoerce(t *testing.T) {
	s, err := FromBytes([]byte("update_interval: 1000\nflag: \"true\"\nnum: \"12\"\nsection:\n  a: 1\n"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if got := s.GetString("update_interval", ""); got != "1000" {
		t.Fatalf("int as string=%q", got)
	}
	if !s.GetBool("flag", false) {
		t.Fatalf("string bool")
	}
	if s.GetInt("num", 0) != 12 {
		t.Fatalf("string int")
	}
	if s.GetString("section", "def") != "def" {
		t.Fatalf("section as string must use default")
	}
	if s.GetInt("missing.key", 7) != 7 {
		t.Fatalf("missing default")
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist without file: %v", err)
	}
}

func TestReloadPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(path, []byte("spawn_center:\n  x: 320\n  z: -64\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.GetInt("spawn_center.x", 0) != 320 || s.GetInt("spawn_center.z", 0) != -64 {
		t.Fatalf("center not reloaded")
	}
}

func TestBadYAML(t *testing.T) {
	if _, err := FromBytes([]byte("mode: [unterminated")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestListsAndNestedMapsSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Has("known_players") || s.GetStrings("known_players") != nil {
		t.Fatalf("unexpected known_players in defaults")
	}
	s.Set("known_players", []string{"alex", "sam"})
	s.Set("world_spawn.world", map[string]any{"x": 3, "y": 70, "z": -4})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := r.GetStrings("known_players")
	if len(got) != 2 || got[0] != "alex" || got[1] != "sam" {
		t.Fatalf("known_players=%v", got)
	}
	if !r.Has("world_spawn.world.y") || r.GetInt("world_spawn.world.y", 0) != 70 || r.GetInt("world_spawn.world.z", 0) != -4 {
		t.Fatalf("world_spawn not restored")
	}
	if r.Has("world_spawn.world_nether") {
		t.Fatalf("Has reported a missing key")
	}
}
