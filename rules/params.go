package rules

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"time"
)

// Params are the rule-specific values of a configuration entry. Numbers
// decoded from JSON or YAML arrive as float64; strings are accepted for
// numeric parameters when they parse cleanly.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Int reads key as a whole number, def when absent.
func (p Params) Int(key string, def int) (int, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadParam, key, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s: %v is not a whole number", ErrBadParam, key, raw)
	}
	return int(f), nil
}

// Float reads key as a number, def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadParam, key, err)
	}
	return f, nil
}

// Duration reads key as a Go duration string or a number of milliseconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	if s, ok := raw.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadParam, key, err)
	}
	return time.Duration(f * float64(time.Millisecond)), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}
