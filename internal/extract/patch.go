package extract

import "github.com/sells-group/voice-agent/internal/model"

// Patch is a partial draft produced by one extraction source.
type Patch = model.Draft

// Apply merges patches into draft in order. A field set by a later patch
// overrides the same field from an earlier one; unset fields never clear
// anything.
func Apply(draft model.Draft, patches ...Patch) model.Draft {
	out := draft
	for _, p := range patches {
		out = out.Merge(p)
	}
	return out
}
