package spawncycle

import (
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle/policy"
)

// OnTick is the scheduled driver; it always qualifies.
func (c *Controller) OnTick() Outcome {
	if c.updating.Load() {
		return c.drop()
	}
	return c.moveSpawn(ReasonScheduled, nil)
}

func (c *Controller) OnRespawn(ev RespawnEvent) Outcome {
	if c.updating.Load() || !c.enabled {
		return c.drop()
	}
	if !policy.RespawnQualifies(c.settings.Respawn, ev.HasBed) {
		return c.drop()
	}
	if !c.cooldown.Elapsed(c.now()) {
		c.log.Printf("spawn update skipped on respawn of %s; interval not yet passed", ev.Player)
		return c.drop()
	}
	return c.moveSpawn(ReasonRespawn, nil)
}

func (c *Controller) OnJoin(ev JoinEvent) Outcome {
	if c.updating.Load() || !c.enabled {
		return c.drop()
	}
	if !c.settings.UpdateOnJoin || !ev.FirstJoin {
		return c.drop()
	}
	if !c.cooldown.Elapsed(c.now()) {
		c.log.Printf("spawn update skipped on first join of %s; interval not yet passed", ev.Player)
		return c.drop()
	}
	return c.moveSpawn(ReasonJoin, nil)
}

// OnSpawnChange handles a spawn change made by someone other than this
// controller: the active cycle restarts around the new spawn and the timer is
// re-anchored. It never moves the spawn itself.
func (c *Controller) OnSpawnChange(ev SpawnChangeEvent) Outcome {
	if c.updating.Load() || !c.enabled {
		return c.drop()
	}
	if ev.World != "" && ev.World != c.settings.WorldName {
		return c.drop()
	}
	c.log.Printf("external spawn change detected at %s; resetting %s cycle", ev.Pos, c.settings.Mode)

	c.resetActive()
	if err := c.saveActive(); err != nil {
		c.log.Printf("ERROR persist %s state: %v", c.settings.Mode, err)
	}

	c.center = model.Center{X: ev.Pos.X, Z: ev.Pos.Z}
	c.cfg.Set(KeySpawnCenterX, c.center.X)
	c.cfg.Set(KeySpawnCenterZ, c.center.Z)
	if err := c.cfg.Persist(); err != nil {
		c.log.Printf("ERROR persist spawn center: %v", err)
	}

	if c.sched != nil {
		c.sched.CancelAll()
	}
	c.setScheduled(false)
	c.schedule(c.settings.IntervalTicks)
	c.publish(nil)
	return Rebased
}

// Force moves the spawn immediately, optionally restarting the active cycle
// first.
func (c *Controller) Force(reset bool) Outcome {
	if c.updating.Load() {
		return c.drop()
	}
	if !reset {
		return c.moveSpawn(ReasonManual, nil)
	}
	return c.moveSpawn(ReasonManualReset, c.resetActive)
}
