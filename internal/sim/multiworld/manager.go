package multiworld

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
)

// Manager owns every hosted world. It implements spawncycle.Worlds and
// spawncycle.Messenger.
type Manager struct {
	cfg     Config
	log     *log.Logger
	order   []string
	worlds  map[string]*world.World
	players *Registry

	// RequestTimeout bounds commands forwarded between worlds.
	RequestTimeout time.Duration
}

func NewManager(cfg Config, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		cfg:            cfg,
		log:            logger,
		worlds:         map[string]*world.World{},
		players:        NewRegistry(logger),
		RequestTimeout: 5 * time.Second,
	}
	for _, spec := range cfg.Worlds {
		w := world.New(world.WorldConfig{
			Name:       spec.Name,
			TickRateHz: cfg.TickRateHz,
			Seed:       cfg.Seed + spec.SeedOffset,
			BoundaryR:  spec.BoundaryR,
			BaseHeight: spec.BaseHeight,
			Amplitude:  spec.Amplitude,
			Grid:       spec.Grid,
			SpawnX:     spec.Spawn.X,
			SpawnZ:     spec.Spawn.Z,
		}, log.New(logger.Writer(), fmt.Sprintf("%s[%s] ", logger.Prefix(), spec.Name), logger.Flags()))
		w.SetRegistry(m.players)
		m.order = append(m.order, spec.Name)
		m.worlds[spec.Name] = w
	}
	return m, nil
}

// UseStore makes the player registry and applied spawns durable in s and
// restores each world's last recorded spawn. It must be called before Run.
func (m *Manager) UseStore(s HostStore) {
	m.players.Attach(s)
	for _, name := range m.order {
		p, ok := m.players.Spawn(name)
		if !ok {
			continue
		}
		if err := m.worlds[name].RestoreSpawn(p); err != nil {
			m.log.Printf("ignoring recorded spawn of %s: %v", name, err)
			continue
		}
		m.log.Printf("restored spawn of %s at %s", name, p)
	}
}

func (m *Manager) Players() *Registry { return m.players }

func (m *Manager) Names() []string { return append([]string(nil), m.order...) }

func (m *Manager) Runtime(name string) *world.World { return m.worlds[name] }

func (m *Manager) Default() *world.World { return m.worlds[m.cfg.DefaultWorld] }

// Resolve returns the named world, or the default world for an empty name.
func (m *Manager) Resolve(name string) (*world.World, bool) {
	if name == "" {
		return m.Default(), true
	}
	w, ok := m.worlds[name]
	return w, ok
}

func (m *Manager) World(name string) (spawncycle.World, bool) {
	w, ok := m.worlds[name]
	if !ok {
		return nil, false
	}
	return w, true
}

// Broadcast reaches players in every world.
func (m *Manager) Broadcast(text string) {
	for _, name := range m.order {
		m.worlds[name].Broadcast(text)
	}
}

// Route installs h on the control world and forwards the other worlds'
// events onto the control world's loop, so the hooks only ever run there.
// When control is not hosted the default world's loop stands in; the
// controller reports the missing world itself.
func (m *Manager) Route(control string, h world.Hooks) {
	ctl := m.LoopFor(control)
	for _, name := range m.order {
		w := m.worlds[name]
		if w == ctl {
			w.SetHooks(h)
			continue
		}
		w.SetHooks(m.forward(ctl, h))
	}
}

// LoopFor returns the world whose loop goroutine runs hooks routed for name.
func (m *Manager) LoopFor(name string) *world.World {
	if w, ok := m.worlds[name]; ok {
		return w
	}
	return m.Default()
}

func (m *Manager) forward(ctl *world.World, h world.Hooks) world.Hooks {
	var f world.Hooks
	if h.OnJoin != nil {
		f.OnJoin = func(ev spawncycle.JoinEvent) {
			if !ctl.Post(func() { h.OnJoin(ev) }) {
				m.log.Printf("join event for %s dropped; %s queue full", ev.Player, ctl.Name())
			}
		}
	}
	if h.OnRespawn != nil {
		f.OnRespawn = func(ev spawncycle.RespawnEvent) {
			if !ctl.Post(func() { h.OnRespawn(ev) }) {
				m.log.Printf("respawn event for %s dropped; %s queue full", ev.Player, ctl.Name())
			}
		}
	}
	if h.OnSpawnChange != nil {
		f.OnSpawnChange = func(ev spawncycle.SpawnChangeEvent) {
			ctl.Post(func() { h.OnSpawnChange(ev) })
		}
	}
	if h.OnCommand != nil {
		f.OnCommand = func(name string, args []string) ([]string, bool) {
			ctx, cancel := context.WithTimeout(context.Background(), m.RequestTimeout)
			defer cancel()
			resp, err := ctl.Command(ctx, name, args)
			if err != nil {
				return []string{"Spawn controller unavailable; try again."}, true
			}
			return resp.Lines, resp.OK
		}
	}
	return f
}

// Run runs every world loop until ctx is done or one loop fails.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, name := range m.order {
		w := m.worlds[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Run(ctx)
			if err != nil && ctx.Err() == nil {
				once.Do(func() { first = fmt.Errorf("world %s: %w", w.Name(), err) })
				cancel()
			}
		}()
	}
	wg.Wait()
	if first != nil {
		return first
	}
	return ctx.Err()
}
