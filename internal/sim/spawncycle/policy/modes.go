package policy

import "strings"

type Mode string

const (
	ModeSpiral Mode = "spiral"
	ModeSquare Mode = "square"
)

// ParseMode resolves the sequencer mode; unknown values select spiral.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSpiral:
		return ModeSpiral, true
	case ModeSquare:
		return ModeSquare, true
	}
	return ModeSpiral, false
}

type RespawnMode string

const (
	RespawnNone  RespawnMode = "none"
	RespawnNoBed RespawnMode = "respawn-no-bed"
	RespawnAll   RespawnMode = "respawn-all"
)

// ParseRespawnMode resolves update_on_respawn; unknown values disable
// respawn-driven updates.
func ParseRespawnMode(s string) (RespawnMode, bool) {
	switch RespawnMode(strings.ToLower(strings.TrimSpace(s))) {
	case RespawnNone:
		return RespawnNone, true
	case RespawnNoBed:
		return RespawnNoBed, true
	case RespawnAll:
		return RespawnAll, true
	}
	return RespawnNone, false
}

// RespawnQualifies reports whether a respawning player should move the spawn.
func RespawnQualifies(mode RespawnMode, hasBed bool) bool {
	switch mode {
	case RespawnAll:
		return true
	case RespawnNoBed:
		return !hasBed
	}
	return false
}
