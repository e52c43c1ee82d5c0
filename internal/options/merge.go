// Package options implements the hierarchical option mappings attached to
// credential types, credential configurations and learning-path steps.
package options

// StepsKey is the option key holding per-step overrides for learning paths.
const StepsKey = "steps"

// Merge deep-merges override on top of base and returns a new mapping.
// Nested mappings are merged recursively only when both sides hold a mapping;
// in every other conflict the override value wins. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = clone(v)
	}

	for k, ov := range override {
		bv, exists := result[k]
		if exists {
			bm, bok := asMap(bv)
			om, ook := asMap(ov)
			if bok && ook {
				result[k] = Merge(bm, om)
				continue
			}
		}
		result[k] = clone(ov)
	}

	return result
}

// MergeAll merges the given mappings left to right.
func MergeAll(layers ...map[string]any) map[string]any {
	result := map[string]any{}
	for _, layer := range layers {
		result = Merge(result, layer)
	}
	return result
}

// ForStep returns the options used to evaluate one learning-path step.
// A step without an entry under "steps" gets opts back unmodified.
func ForStep(opts map[string]any, stepKey string) map[string]any {
	steps, ok := asMap(opts[StepsKey])
	if !ok {
		return opts
	}
	override, ok := asMap(steps[stepKey])
	if !ok {
		return opts
	}
	return Merge(opts, override)
}

// Float returns a numeric option, falling back to def when missing or not a number.
func Float(opts map[string]any, key string, def float64) float64 {
	switch v := opts[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return def
	}
}

// String returns a string option, falling back to def when missing.
func String(opts map[string]any, key, def string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Map returns a nested mapping option, or nil.
func Map(opts map[string]any, key string) map[string]any {
	m, _ := asMap(opts[key])
	return m
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Merge(t, nil)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = clone(t[i])
		}
		return out
	default:
		return v
	}
}
