package spawncycle

import (
	"log"

	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle/policy"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

type Settings struct {
	WorldName       string
	Mode            policy.Mode
	IntervalTicks   int64
	Respawn         policy.RespawnMode
	RequireBoth     bool
	UpdateOnJoin    bool
	UpdateOnStartup bool
	Step            square.Step
	Template        string
	Center          model.Center
}

// LoadSettings reads the controller settings from cfg. Malformed values fall
// back to their defaults with a warning.
func LoadSettings(cfg Config, logger *log.Logger) Settings {
	s := Settings{
		WorldName:       cfg.GetString(KeyWorldName, "world"),
		RequireBoth:     cfg.GetBool(KeyRequireBoth, false),
		UpdateOnJoin:    cfg.GetBool(KeyUpdateOnJoin, true),
		UpdateOnStartup: cfg.GetBool(KeyUpdateOnStart, false),
		Template:        cfg.GetString(KeyBroadcastTpl, policy.DefaultBroadcastTemplate),
		Center:          loadCenter(cfg),
	}

	raw := cfg.GetString(KeyMode, string(policy.ModeSpiral))
	mode, ok := policy.ParseMode(raw)
	if !ok {
		logger.Printf("WARN invalid mode %q; defaulting to spiral", raw)
	}
	s.Mode = mode

	raw = cfg.GetString(KeyUpdateInterval, "daily")
	ticks, ok := policy.ParseTickInterval(raw)
	if !ok {
		logger.Printf("WARN invalid update_interval %q; using default (daily)", raw)
	}
	s.IntervalTicks = ticks

	raw = cfg.GetString(KeyUpdateOnResp, string(policy.RespawnNone))
	rm, ok := policy.ParseRespawnMode(raw)
	if !ok {
		logger.Printf("WARN invalid update_on_respawn %q; respawn updates disabled", raw)
	}
	s.Respawn = rm

	raw = cfg.GetString(KeySquareStep, policy.StepChunkCenter)
	step, ok := policy.ParseStep(raw)
	if !ok {
		logger.Printf("WARN invalid square_step %q; defaulting to chunkcenter", raw)
	}
	s.Step = step

	return s
}

func loadCenter(cfg Config) model.Center {
	return model.Center{
		X: cfg.GetInt(KeySpawnCenterX, 0),
		Z: cfg.GetInt(KeySpawnCenterZ, 0),
	}
}
