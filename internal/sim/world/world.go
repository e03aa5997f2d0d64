package world

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world/terrain/store"
)

var ErrOutOfBounds = errors.New("position outside world boundary")

// Hooks receive world events on the loop goroutine. Nil hooks are skipped.
type Hooks struct {
	OnJoin        func(spawncycle.JoinEvent)
	OnRespawn     func(spawncycle.RespawnEvent)
	OnSpawnChange func(spawncycle.SpawnChangeEvent)
	OnCommand     func(name string, args []string) ([]string, bool)
}

// Registry holds host state shared by every world. Its methods are called
// from several world loops at once.
type Registry interface {
	// MarkJoined records name and reports whether it had never joined any
	// world before.
	MarkJoined(name string) (first bool)
	SpawnMoved(world string, p model.Vec3i)
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	PlayerID  string
	FirstJoin bool
	Spawn     model.Vec3i
}

type RespawnRequest struct {
	PlayerID string
	HasBed   bool
	Resp     chan model.Vec3i
}

type SetBedRequest struct {
	PlayerID string
	Bed      *model.Vec3i
	Resp     chan error
}

type CommandRequest struct {
	Name string
	Args []string
	Resp chan CommandResponse
}

type CommandResponse struct {
	OK    bool
	Lines []string
}

type SetSpawnRequest struct {
	Pos  model.Vec3i
	Resp chan error
}

type Status struct {
	Name          string
	Tick          uint64
	Spawn         model.Vec3i
	Players       int
	Online        int
	LoadedChunks  int
	ScheduledJobs map[string]int
}

type clientState struct {
	Out chan []byte
}

// World is a single-threaded host for one named world: terrain heights,
// spawn location, players and a tick scheduler.
// All state except the spawn snapshot must be accessed only from the loop
// goroutine.
type World struct {
	cfg WorldConfig
	log *log.Logger

	tick  atomic.Uint64
	spawn atomic.Pointer[model.Vec3i]

	terrain *store.HeightStore
	sched   *Scheduler
	hooks   Hooks
	reg     Registry

	players map[string]*model.Player
	byName  map[string]string
	clients map[string]*clientState

	join      chan JoinRequest
	leave     chan string
	respawn   chan RespawnRequest
	setBed    chan SetBedRequest
	command   chan CommandRequest
	setSpawn  chan SetSpawnRequest
	broadcast chan string
	submit    chan func()
	status    chan chan Status
	stop      chan struct{}

	nextPlayerNum atomic.Uint64
}

func New(cfg WorldConfig, logger *log.Logger) *World {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &World{
		cfg:       cfg,
		log:       logger,
		terrain:   store.NewHeightStore(cfg.terrainParams(), cfg.BoundaryR),
		players:   map[string]*model.Player{},
		byName:    map[string]string{},
		clients:   map[string]*clientState{},
		join:      make(chan JoinRequest, 64),
		leave:     make(chan string, 64),
		respawn:   make(chan RespawnRequest, 256),
		setBed:    make(chan SetBedRequest, 64),
		command:   make(chan CommandRequest, 64),
		setSpawn:  make(chan SetSpawnRequest, 16),
		broadcast: make(chan string, 64),
		submit:    make(chan func(), 256),
		status:    make(chan chan Status, 16),
		stop:      make(chan struct{}),
	}
	w.sched = newScheduler(func() uint64 { return w.tick.Load() })

	c := cfg.initialSpawnColumn()
	y, ok := w.terrain.Height(c.X, c.Z)
	if !ok {
		c = model.Center{}
		y, _ = w.terrain.Height(0, 0)
	}
	w.spawn.Store(&model.Vec3i{X: c.X, Y: y + 1, Z: c.Z})
	return w
}

// SetHooks must be called before Run.
func (w *World) SetHooks(h Hooks) { w.hooks = h }

// SetRegistry must be called before Run. Without one, first joins are
// tracked per world and in memory only.
func (w *World) SetRegistry(r Registry) { w.reg = r }

// RestoreSpawn puts back a previously applied spawn without firing hooks.
// It must be called before Run.
func (w *World) RestoreSpawn(p model.Vec3i) error {
	if !w.terrain.InBounds(p.X, p.Z) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	w.spawn.Store(&p)
	return nil
}

func (w *World) Name() string { return w.cfg.Name }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Scheduler is the world's tick scheduler; use Owner to get a scoped view.
func (w *World) Scheduler() *Scheduler { return w.sched }

// HighestSolidBlockY resolves the surface at (x,z). Columns outside the
// boundary report spawncycle.ErrWorldUnavailable.
func (w *World) HighestSolidBlockY(x, z int) (int, error) {
	y, ok := w.terrain.Height(x, z)
	if !ok {
		return 0, fmt.Errorf("%w: column (%d, %d) outside boundary %d of %s", spawncycle.ErrWorldUnavailable, x, z, w.cfg.BoundaryR, w.cfg.Name)
	}
	return y, nil
}

// SetSurface overrides the surface height of one column.
func (w *World) SetSurface(x, z, y int) bool { return w.terrain.SetHeight(x, z, y) }

// SpawnLocation is safe to call from any goroutine.
func (w *World) SpawnLocation() model.Vec3i { return *w.spawn.Load() }

// SetSpawnLocation moves the world spawn and fires OnSpawnChange before
// returning, the same way for cycle moves and operator moves.
func (w *World) SetSpawnLocation(p model.Vec3i) error {
	if !w.terrain.InBounds(p.X, p.Z) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	np := p
	w.spawn.Store(&np)
	if w.reg != nil {
		w.reg.SpawnMoved(w.cfg.Name, p)
	}
	if w.hooks.OnSpawnChange != nil {
		w.hooks.OnSpawnChange(spawncycle.SpawnChangeEvent{World: w.cfg.Name, Pos: p})
	}
	return nil
}

// World implements spawncycle.Worlds for a single-world host.
func (w *World) World(name string) (spawncycle.World, bool) {
	if name != w.cfg.Name {
		return nil, false
	}
	return w, true
}
