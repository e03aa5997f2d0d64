package policy

import (
	"strconv"
	"strings"

	"spawncycle.ai/internal/sim/model"
)

const DefaultBroadcastTemplate = "§6Spawn moved via §e{reason}§6 ({mode} mode) §7(@ {x}, {y}, {z})"

// RenderTemplate fills the {reason} {mode} {x} {y} {z} placeholders.
func RenderTemplate(tpl, reason string, mode Mode, p model.Vec3i) string {
	if tpl == "" {
		tpl = DefaultBroadcastTemplate
	}
	r := strings.NewReplacer(
		"{reason}", reason,
		"{mode}", string(mode),
		"{x}", strconv.Itoa(p.X),
		"{y}", strconv.Itoa(p.Y),
		"{z}", strconv.Itoa(p.Z),
	)
	return r.Replace(tpl)
}
