package policy

import "time"

// Cooldown gates event-driven updates against the last applied update.
type Cooldown struct {
	LastUpdate    time.Time
	IntervalTicks int64
	RequireBoth   bool
}

// Elapsed reports whether an event trigger may fire at now. The gate only
// applies when RequireBoth is set and scheduled updates are enabled.
func (c Cooldown) Elapsed(now time.Time) bool {
	if !c.RequireBoth || c.IntervalTicks <= 0 {
		return true
	}
	return now.Sub(c.LastUpdate) >= TicksToDuration(c.IntervalTicks)
}
