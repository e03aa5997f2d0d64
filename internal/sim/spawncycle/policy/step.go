package policy

import (
	"strconv"
	"strings"

	"spawncycle.ai/internal/sim/spawncycle/square"
)

const StepChunkCenter = "chunkcenter"

// ParseStep resolves a square_step value. Unparseable values fall back to
// chunk-center stepping and report ok=false.
func ParseStep(s string) (square.Step, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == StepChunkCenter {
		return square.ChunkCenterStep(), true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return square.ChunkCenterStep(), false
	}
	return square.Step{Multiplier: n}, true
}
