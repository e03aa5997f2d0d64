package multiworld

import (
	"io"
	"log"
	"sort"
	"sync"

	"spawncycle.ai/internal/sim/model"
)

// Keys under which host state is kept in the backing store.
const (
	KeyKnownPlayers = "known_players"
	KeyWorldSpawn   = "world_spawn"
)

// HostStore is the durable backing for Registry; configstore.Store satisfies
// it.
type HostStore interface {
	Has(key string) bool
	GetInt(key string, def int) int
	GetStrings(key string) []string
	Set(key string, v any)
	Persist() error
}

// Registry is the host-wide record of players who have ever joined and of
// the last spawn applied to each world. Every world loop shares one.
type Registry struct {
	log *log.Logger

	mu    sync.Mutex
	store HostStore
	known map[string]bool
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{log: logger, known: map[string]bool{}}
}

// Attach loads known players from s and persists later changes to it.
// Names already recorded in memory are kept.
func (r *Registry) Attach(s HostStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = s
	for _, name := range s.GetStrings(KeyKnownPlayers) {
		r.known[name] = true
	}
}

func (r *Registry) Known(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.known[name]
}

func (r *Registry) Players() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.known)
}

func (r *Registry) MarkJoined(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known[name] {
		return false
	}
	r.known[name] = true
	if r.store != nil {
		names := make([]string, 0, len(r.known))
		for n := range r.known {
			names = append(names, n)
		}
		sort.Strings(names)
		r.store.Set(KeyKnownPlayers, names)
		if err := r.store.Persist(); err != nil {
			r.log.Printf("ERROR persist known players: %v", err)
		}
	}
	return true
}

func (r *Registry) SpawnMoved(world string, p model.Vec3i) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return
	}
	r.store.Set(spawnKey(world), map[string]any{"x": p.X, "y": p.Y, "z": p.Z})
	if err := r.store.Persist(); err != nil {
		r.log.Printf("ERROR persist spawn of %s: %v", world, err)
	}
}

// Spawn returns the last spawn recorded for world.
func (r *Registry) Spawn(world string) (model.Vec3i, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return model.Vec3i{}, false
	}
	k := spawnKey(world)
	if !r.store.Has(k+".x") || !r.store.Has(k+".y") || !r.store.Has(k+".z") {
		return model.Vec3i{}, false
	}
	return model.Vec3i{
		X: r.store.GetInt(k+".x", 0),
		Y: r.store.GetInt(k+".y", 0),
		Z: r.store.GetInt(k+".z", 0),
	}, true
}

func spawnKey(world string) string { return KeyWorldSpawn + "." + world }
