package spawncycle

import (
	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

// Config keys for persisted progression.
const (
	KeySpiralRadius   = "spiral.radius"
	KeySpiralAngle    = "spiral.angle"
	KeySquareLayer    = "square.layer"
	KeySquareStepIdx  = "square.stepIndex"
	KeySpawnCenterX   = "spawn_center.x"
	KeySpawnCenterZ   = "spawn_center.z"
	KeyWorldName      = "world-name"
	KeyMode           = "mode"
	KeyUpdateInterval = "update_interval"
	KeyUpdateOnResp   = "update_on_respawn"
	KeyRequireBoth    = "require_both_conditions"
	KeyUpdateOnJoin   = "update_on_new_player_join"
	KeyUpdateOnStart  = "update_on_startup"
	KeySquareStep     = "square_step"
	KeyBroadcastTpl   = "broadcast_message_template"
	KeyStateBackend   = "state_backend"
)

// StateStore persists sequencer progression.
type StateStore interface {
	LoadSpiral() (spiral.State, error)
	SaveSpiral(s spiral.State) error
	LoadSquare() (square.State, error)
	SaveSquare(s square.State) error
}

// ConfigState keeps progression in the main config under the spiral.* and
// square.* keys.
type ConfigState struct {
	Config Config
}

func (s ConfigState) LoadSpiral() (spiral.State, error) {
	return spiral.State{
		Radius: s.Config.GetInt(KeySpiralRadius, spiral.StartRadius),
		Angle:  s.Config.GetInt(KeySpiralAngle, 0),
	}, nil
}

func (s ConfigState) SaveSpiral(st spiral.State) error {
	s.Config.Set(KeySpiralRadius, st.Radius)
	s.Config.Set(KeySpiralAngle, st.Angle)
	return s.Config.Persist()
}

func (s ConfigState) LoadSquare() (square.State, error) {
	return square.State{
		Ring:      s.Config.GetInt(KeySquareLayer, 0),
		StepIndex: s.Config.GetInt(KeySquareStepIdx, 0),
	}, nil
}

func (s ConfigState) SaveSquare(st square.State) error {
	s.Config.Set(KeySquareLayer, st.Ring)
	s.Config.Set(KeySquareStepIdx, st.StepIndex)
	return s.Config.Persist()
}
