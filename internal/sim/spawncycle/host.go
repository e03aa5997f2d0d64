package spawncycle

import (
	"errors"

	"spawncycle.ai/internal/sim/model"
)

// ErrWorldUnavailable is returned (possibly wrapped) when the configured world
// is not loaded or a target column lies outside the loaded area.
var ErrWorldUnavailable = errors.New("world unavailable")

type World interface {
	Name() string
	HighestSolidBlockY(x, z int) (int, error)
	SpawnLocation() model.Vec3i
	SetSpawnLocation(p model.Vec3i) error
}

type Worlds interface {
	World(name string) (World, bool)
}

type TaskID uint64

// Scheduler runs callbacks on the host's main loop. CancelAll cancels every
// task scheduled through this scheduler.
type Scheduler interface {
	SchedulePeriodic(fn func(), delayTicks, intervalTicks int64) TaskID
	CancelAll()
}

// Config is the durable key/value configuration. Keys are dotted paths.
type Config interface {
	GetString(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	Set(key string, v any)
	Persist() error
}

// Reloader is implemented by configs that can re-read their backing file.
type Reloader interface {
	Reload() error
}

type Messenger interface {
	Broadcast(text string)
}

type RespawnEvent struct {
	Player string
	HasBed bool
}

type JoinEvent struct {
	Player    string
	FirstJoin bool
}

type SpawnChangeEvent struct {
	World string
	Pos   model.Vec3i
}
