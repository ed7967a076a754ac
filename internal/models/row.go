package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Cell is one loosely typed cell of an analytics output row, exactly as the
// API returns it (a JSON object such as {"value": 12.5} or an app descriptor).
type Cell map[string]any

// RawRow is one flat analytics output row.
type RawRow []Cell

// String returns the first non-empty string found under the given keys.
func (c Cell) String(keys ...string) string {
	for _, k := range keys {
		v, ok := c[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case bool:
			s = strconv.FormatBool(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Bool returns the boolean under key, accepting "true"/"1" strings.
func (c Cell) Bool(key string) bool {
	switch t := c[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}

// Number returns the numeric "value" of the cell. Anything unparsable,
// NaN or infinite yields 0.
func (c Cell) Number() float64 {
	var f float64
	switch t := c["value"].(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		v, err := t.Float64()
		if err != nil {
			return 0
		}
		f = v
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(t, "%")), 64)
		if err != nil {
			return 0
		}
		f = v
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
