package powersource

import "math"

// Dict is a loosely-typed property dictionary as read from an OS registry
// entry. Accessors tolerate missing keys, type mismatches, and placeholder
// sentinel values by reporting the value as unavailable; they never error.
type Dict map[string]any

// unknownSentinel is the placeholder some firmware revisions report for
// fields they cannot measure.
const unknownSentinel = math.MaxInt32

func (d Dict) Float(key string) (float64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		if i, ok := asInt64(v); ok {
			if i == unknownSentinel {
				return 0, false
			}
			return float64(i), true
		}
	}
	return 0, false
}

func (d Dict) Int(key string) (int, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	i, ok := asInt64(v)
	if !ok || i == unknownSentinel {
		return 0, false
	}
	return int(i), true
}

func (d Dict) Bool(key string) (bool, bool) {
	v, ok := d[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (d Dict) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d Dict) Dict(key string) (Dict, bool) {
	v, ok := d[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case Dict:
		return t, true
	case map[string]any:
		return Dict(t), true
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	}
	return 0, false
}

// signed32 reinterprets a register-width value as a signed 32-bit quantity.
// Current readings come back as raw unsigned words; discharge currents are
// negative in two's complement.
func signed32(v int64) int64 {
	return int64(int32(uint32(uint64(v))))
}
