// Package configmerge implements the deferred-value-aware layered merge
// the Config Loader (C3) uses to combine Project/Environment/Provider
// variable scopes (spec.md §4.3, grounded on the teacher's dario.cat/mergo
// + deferred-value merge pattern): an *Unresolved leaf must survive a
// merge unless the overlay supplies a concrete replacement, since forcing
// its evaluation early would use the wrong (narrower) context.
package configmerge

import (
	"dario.cat/mergo"

	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
)

// Merge overlays src on top of base: every key in src wins over the same
// key in base, except that an src value which is itself an unresolved
// marker never overwrites a concrete base value (deferring instead to
// base, since src had nothing more useful to offer yet). Nested
// *schema.OrderedMap values are merged recursively in the same way;
// anything else falls back to a plain "src wins" overwrite, matching
// Settings.ListMergeStrategy's "Replace" default for lists.
func Merge(base, src *schema.OrderedMap) *schema.OrderedMap {
	if base == nil {
		return src
	}
	if src == nil {
		return base
	}
	out := base.Clone()
	for _, k := range src.Keys() {
		sv, _ := src.Get(k)
		bv, hasBase := out.Get(k)

		if isDeferred(sv) && hasBase && !isDeferred(bv) {
			continue // keep the concrete base value
		}

		if hasBase {
			if bm, ok := bv.(*schema.OrderedMap); ok {
				if sm, ok := sv.(*schema.OrderedMap); ok {
					out.Set(k, Merge(bm, sm))
					continue
				}
			}
		}
		out.Set(k, sv)
	}
	return out
}

func isDeferred(v any) bool {
	switch v.(type) {
	case *template.Unresolved, *template.DeferredTree:
		return true
	}
	return false
}

// MergeMaps is the map[string]any convenience wrapper used for simple
// scopes (e.g. the process-environment-derived "var" layer) that never
// contain OrderedMap-shaped nesting. It is a thin dario.cat/mergo.Merge
// call, kept as its own entry point so call sites that genuinely have
// plain Go maps (not OrderedMap document trees) don't need to round-trip
// through OrderedMap just to merge.
func MergeMaps(base, src map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(base)+len(src))
	for k, v := range base {
		out[k] = v
	}
	if err := mergo.Merge(&out, src, mergo.WithOverride); err != nil {
		return nil, err
	}
	return out, nil
}
