package shipper

import "github.com/lokiship/lokiship/pkg/types"

// ResolveLabels returns the label set of a stream carrying events of level:
// the static labels plus level=<lowercase severity>. A static "level" label
// is always replaced by the event's own severity. static is not modified.
func ResolveLabels(static types.Labels, level types.Level) types.Labels {
	out := static.Clone()
	out[types.LevelLabel] = level.String()
	return out
}

// labelResolver precomputes one label set per severity. The returned maps
// are shared and must be treated as read-only.
type labelResolver struct {
	static  types.Labels
	byLevel [len(types.Levels)]types.Labels
}

func newLabelResolver(static types.Labels) *labelResolver {
	r := &labelResolver{static: static.Clone()}
	for _, lvl := range types.Levels {
		r.byLevel[lvl] = ResolveLabels(r.static, lvl)
	}
	return r
}

func (r *labelResolver) resolve(level types.Level) types.Labels {
	if level.Valid() {
		return r.byLevel[level]
	}
	return ResolveLabels(r.static, level)
}
