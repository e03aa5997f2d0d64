package spawncycle

import (
	"fmt"
	"strings"
)

const (
	CmdForceSpawnMove = "forcespawnmove"
	CmdCheckSpawn     = "checkspawn"
	CmdReloadCenter   = "reloadcenter"
)

var usage = []string{
	"/forcespawnmove - force a spawn move immediately",
	"/forcespawnmove reset - reset spawn cycle to center",
	"/checkspawn - view current spawn coordinates",
	"/reloadcenter - reload spawn center from config",
}

// Usage returns the help lines for all commands.
func Usage() []string { return append([]string(nil), usage...) }

// HandleCommand executes one of the exposed commands. ok is false when name is
// not a command this controller handles.
func (c *Controller) HandleCommand(name string, args []string) (lines []string, ok bool) {
	name = strings.ToLower(name)
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch name {
	case CmdForceSpawnMove, CmdCheckSpawn, CmdReloadCenter:
	default:
		return nil, false
	}

	w, err := c.world()
	if err != nil {
		return []string{"World not found."}, true
	}
	if sub == "help" {
		return Usage(), true
	}

	switch name {
	case CmdForceSpawnMove:
		reset := sub == "reset"
		out := c.Force(reset)
		switch out {
		case Applied:
			if reset {
				return []string{"Spawn cycle reset and moved to center."}, true
			}
			return []string{fmt.Sprintf("Spawn updated using %s mode!", c.settings.Mode)}, true
		case Dropped:
			return []string{"A spawn update is already in progress."}, true
		default:
			return []string{"Spawn update failed; see server log."}, true
		}

	case CmdCheckSpawn:
		p := w.SpawnLocation()
		return []string{fmt.Sprintf("Current world spawn coordinates: %d, %d, %d", p.X, p.Y, p.Z)}, true

	case CmdReloadCenter:
		c.ReloadCenter()
		return []string{fmt.Sprintf("Center reloaded to X=%d, Z=%d", c.center.X, c.center.Z)}, true
	}
	return nil, false
}

// ReloadCenter re-reads the configured origin and reinitializes both
// sequencers from persisted progression.
func (c *Controller) ReloadCenter() {
	if r, ok := c.cfg.(Reloader); ok {
		if err := r.Reload(); err != nil {
			c.log.Printf("ERROR reload config: %v", err)
		}
	}
	c.center = loadCenter(c.cfg)
	c.settings.Center = c.center
	c.spiral.Reset()
	c.square = c.newSquare()
	c.loadProgress()
	c.publish(nil)
}
