package spawncycle

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle/policy"
	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

// Trigger reasons, as rendered into {reason}.
const (
	ReasonScheduled   = "scheduled interval"
	ReasonRespawn     = "player respawn"
	ReasonJoin        = "new player join"
	ReasonManual      = "manual command"
	ReasonManualReset = "manual reset"
)

type Outcome int

const (
	Dropped Outcome = iota
	Applied
	Failed
	Rebased
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case Rebased:
		return "rebased"
	default:
		return "dropped"
	}
}

// Move describes one applied spawn relocation.
type Move struct {
	At     time.Time
	Reason string
	Mode   policy.Mode
	Point  model.SpawnPoint
	Spiral spiral.State
	Square square.State
}

// MoveSink receives applied moves (history index, audit log).
type MoveSink interface {
	RecordMove(m Move)
}

type Options struct {
	Worlds    Worlds
	Scheduler Scheduler
	Config    Config
	State     StateStore
	Messenger Messenger
	Logger    *log.Logger
	Now       func() time.Time
	Sinks     []MoveSink
}

type Status struct {
	Enabled   bool
	Mode      policy.Mode
	Center    model.Center
	Spiral    spiral.State
	Square    square.State
	LastMove  *Move
	Moves     uint64
	Dropped   uint64
	Failed    uint64
	Scheduled bool
}

// Controller drives spawn relocation from scheduled ticks, player events and
// commands. All entry points are expected on the host's main loop; the update
// guard also drops overlapping calls from elsewhere.
type Controller struct {
	worlds Worlds
	sched  Scheduler
	cfg    Config
	store  StateStore
	msg    Messenger
	log    *log.Logger
	now    func() time.Time
	sinks  []MoveSink

	spiral *spiral.Sequencer
	square *square.Sequencer

	settings Settings
	center   model.Center
	cooldown policy.Cooldown
	enabled  bool

	updating atomic.Bool

	moves   atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	// published copy for readers off the main loop
	mu     sync.Mutex
	status Status
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.State == nil {
		opts.State = ConfigState{Config: opts.Config}
	}
	c := &Controller{
		worlds: opts.Worlds,
		sched:  opts.Scheduler,
		cfg:    opts.Config,
		store:  opts.State,
		msg:    opts.Messenger,
		log:    opts.Logger,
		now:    opts.Now,
		sinks:  opts.Sinks,
	}
	c.spiral = spiral.New()
	c.square = c.newSquare()
	return c
}

func (c *Controller) newSquare() *square.Sequencer {
	q := square.New()
	q.OnInconsistent = func(s square.State, size int) {
		c.log.Printf("square step index %d past ring %d (size %d); forcing ring advance", s.StepIndex, s.Ring, size)
	}
	return q
}

// Enable loads settings and progression and starts scheduled updates. A
// missing world is returned as an error; commands and events keep working and
// report the condition themselves.
func (c *Controller) Enable() error {
	c.settings = LoadSettings(c.cfg, c.log)
	c.center = c.settings.Center
	c.loadProgress()
	c.cooldown = policy.Cooldown{
		LastUpdate:    c.now(),
		IntervalTicks: c.settings.IntervalTicks,
		RequireBoth:   c.settings.RequireBoth,
	}
	c.enabled = true
	c.publish(nil)

	if _, err := c.world(); err != nil {
		c.log.Printf("ERROR world %q not found; check config (scheduled updates not started)", c.settings.WorldName)
		return err
	}

	var delay int64
	if !c.settings.UpdateOnStartup {
		delay = c.settings.IntervalTicks
	}
	c.schedule(delay)

	if c.settings.Respawn != policy.RespawnNone {
		c.log.Printf("respawn-based update enabled with mode: %s", c.settings.Respawn)
	}
	return nil
}

// Disable saves both sequencers and cancels scheduled updates.
func (c *Controller) Disable() {
	if c.sched != nil {
		c.sched.CancelAll()
	}
	c.setScheduled(false)
	if err := c.store.SaveSpiral(c.spiral.Current()); err != nil {
		c.log.Printf("save spiral state: %v", err)
	}
	if err := c.store.SaveSquare(c.square.Current()); err != nil {
		c.log.Printf("save square state: %v", err)
	}
	c.enabled = false
	c.publish(nil)
	c.log.Printf("spawn cycle saved; controller disabled")
}

func (c *Controller) loadProgress() {
	if st, err := c.store.LoadSpiral(); err != nil {
		c.log.Printf("load spiral state: %v (starting fresh)", err)
		c.spiral.Reset()
	} else {
		c.spiral.Load(st)
	}
	if st, err := c.store.LoadSquare(); err != nil {
		c.log.Printf("load square state: %v (starting fresh)", err)
		c.square.Reset()
	} else {
		c.square.Load(st)
	}
	sp, sq := c.spiral.Current(), c.square.Current()
	c.log.Printf("loaded spiral position: radius=%d angle=%d", sp.Radius, sp.Angle)
	c.log.Printf("loaded square position: layer=%d stepIndex=%d", sq.Ring, sq.StepIndex)
}

func (c *Controller) schedule(delay int64) {
	if c.sched == nil || c.settings.IntervalTicks <= 0 {
		c.setScheduled(false)
		return
	}
	c.sched.SchedulePeriodic(func() { c.OnTick() }, delay, c.settings.IntervalTicks)
	c.setScheduled(true)
	c.log.Printf("%s mode enabled with tick interval: %d ticks", c.settings.Mode, c.settings.IntervalTicks)
}

func (c *Controller) setScheduled(v bool) {
	c.mu.Lock()
	c.status.Scheduled = v
	c.mu.Unlock()
}

// publish refreshes the copy returned by Status.
func (c *Controller) publish(m *Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Enabled = c.enabled
	c.status.Mode = c.settings.Mode
	c.status.Center = c.center
	c.status.Spiral = c.spiral.Current()
	c.status.Square = c.square.Current()
	if m != nil {
		mv := *m
		c.status.LastMove = &mv
	}
}

func (c *Controller) world() (World, error) {
	if c.worlds == nil {
		return nil, ErrWorldUnavailable
	}
	w, ok := c.worlds.World(c.settings.WorldName)
	if !ok || w == nil {
		return nil, fmt.Errorf("%w: %q", ErrWorldUnavailable, c.settings.WorldName)
	}
	return w, nil
}

// Updating reports whether a spawn update is in progress.
func (c *Controller) Updating() bool { return c.updating.Load() }

func (c *Controller) Settings() Settings { return c.settings }

// Status is safe to call from any goroutine.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := c.status
	c.mu.Unlock()
	if st.LastMove != nil {
		m := *st.LastMove
		st.LastMove = &m
	}
	st.Moves = c.moves.Load()
	st.Dropped = c.dropped.Load()
	st.Failed = c.failed.Load()
	return st
}

func (c *Controller) drop() Outcome {
	c.dropped.Add(1)
	return Dropped
}

func (c *Controller) fail(format string, args ...any) Outcome {
	c.failed.Add(1)
	c.log.Printf("ERROR "+format, args...)
	return Failed
}

// nextPoint resolves the active sequencer's next point and returns a commit
// func that installs its successor state.
func (c *Controller) nextPoint(w World) (model.Vec3i, func(), error) {
	var (
		x, z   int
		commit func()
	)
	switch c.settings.Mode {
	case policy.ModeSquare:
		var next square.State
		x, z, next = c.square.Next(c.center, c.settings.Step)
		commit = func() { c.square.Commit(next) }
	default:
		var next spiral.State
		x, z, next = c.spiral.Next(c.center)
		commit = func() { c.spiral.Commit(next) }
	}
	y, err := w.HighestSolidBlockY(x, z)
	if err != nil {
		return model.Vec3i{}, nil, err
	}
	return model.Vec3i{X: x, Y: y + 1, Z: z}, commit, nil
}

func (c *Controller) saveActive() error {
	if c.settings.Mode == policy.ModeSquare {
		return c.store.SaveSquare(c.square.Current())
	}
	return c.store.SaveSpiral(c.spiral.Current())
}

func (c *Controller) resetActive() {
	if c.settings.Mode == policy.ModeSquare {
		c.square.Reset()
		return
	}
	c.spiral.Reset()
}

// snapshot returns a func that puts both sequencers back where they are now.
func (c *Controller) snapshot() func() {
	sp, sq := c.spiral.Current(), c.square.Current()
	return func() {
		c.spiral.Load(sp)
		c.square.Load(sq)
	}
}

// moveSpawn applies the next point of the active sequence. The spawn is set
// before progression is committed and persisted.
func (c *Controller) moveSpawn(reason string, prepare func()) Outcome {
	if !c.updating.CompareAndSwap(false, true) {
		return c.drop()
	}
	defer c.updating.Store(false)

	w, err := c.world()
	if err != nil {
		return c.fail("spawn update (%s): %v", reason, err)
	}
	restore := c.snapshot()
	if prepare != nil {
		prepare()
	}
	p, commit, err := c.nextPoint(w)
	if err != nil {
		restore()
		return c.fail("spawn update (%s): resolve height: %v", reason, err)
	}
	if err := w.SetSpawnLocation(p); err != nil {
		restore()
		return c.fail("spawn update (%s): set spawn: %v", reason, err)
	}
	commit()
	now := c.now()
	c.cooldown.LastUpdate = now
	if err := c.saveActive(); err != nil {
		c.log.Printf("ERROR persist %s state: %v", c.settings.Mode, err)
	}

	c.broadcast(policy.RenderTemplate(c.settings.Template, reason, c.settings.Mode, p))
	c.log.Printf("spawn moved to X=%d, Y=%d, Z=%d (%s)", p.X, p.Y, p.Z, reason)

	m := Move{
		At:     now,
		Reason: reason,
		Mode:   c.settings.Mode,
		Point:  model.SpawnPoint{World: w.Name(), Pos: p},
		Spiral: c.spiral.Current(),
		Square: c.square.Current(),
	}
	c.moves.Add(1)
	c.publish(&m)
	for _, s := range c.sinks {
		s.RecordMove(m)
	}
	return Applied
}

func (c *Controller) broadcast(text string) {
	if c.msg != nil {
		c.msg.Broadcast(text)
	}
}
