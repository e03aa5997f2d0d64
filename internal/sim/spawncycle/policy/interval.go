package policy

import (
	"strconv"
	"strings"
	"time"
)

// Server ticks.
const (
	TicksPerSecond = 20
	TickDuration   = time.Second / TicksPerSecond

	TicksDaily   int64 = 24 * 60 * 60 * TicksPerSecond
	TicksWeekly        = 7 * TicksDaily
	TicksMonthly       = 30 * TicksDaily
	TicksYearly        = 365 * TicksDaily
)

// ParseTickInterval resolves an update_interval value into ticks. A zero
// result disables scheduled updates. Unparseable values resolve to daily and
// report ok=false.
func ParseTickInterval(s string) (ticks int64, ok bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "daily":
		return TicksDaily, true
	case "weekly":
		return TicksWeekly, true
	case "monthly":
		return TicksMonthly, true
	case "yearly":
		return TicksYearly, true
	case "0":
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return TicksDaily, false
	}
	return n, true
}

// TicksToDuration converts game ticks to wall-clock time (50ms per tick).
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * TickDuration
}
