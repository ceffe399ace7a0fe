// Package tree operates on the nested map[string]any documents used for device
// records and metadata documents. It knows nothing about devices or streams.
package tree

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Copy returns a deep copy of m. Nested maps and slices are copied; other
// values are shared, which is safe because leaves are immutable scalars.
func Copy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Copy(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = copyValue(val[i])
		}
		return out
	default:
		return v
	}
}

// Merge merges overrides into base in place. When both sides hold a map under
// the same key the maps are merged recursively; otherwise the override value
// replaces whatever base had. Values taken from overrides are copied so base
// never aliases overrides.
func Merge(base, overrides map[string]any) {
	for k, ov := range overrides {
		if bm, ok := base[k].(map[string]any); ok {
			if om, ok := ov.(map[string]any); ok {
				Merge(bm, om)
				continue
			}
		}
		base[k] = copyValue(ov)
	}
}

var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

// Equal reports whether a and b hold the same structure. Map key order never
// matters and nil maps equal empty ones.
func Equal(a, b map[string]any) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// Diff renders the difference between a and b, or "" when they are Equal.
// The output format is for humans and is not stable.
func Diff(a, b map[string]any) string {
	return cmp.Diff(a, b, equalOpts...)
}
