// Package docmodel is the structured document used to persist resource trees: string-keyed
// dictionaries and lists of typed values, encodable as JSON (database column, HTTP) or
// CBOR (project files).
package docmodel

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMissingKey   = errors.New("missing key")
	ErrTypeMismatch = errors.New("type mismatch")
)

// Dict maps keys to values. Values are one of: string, bool, int64, uint64, float64,
// []byte, Dict or List.
type Dict map[string]any

// List is an ordered sequence of values (same value set as Dict).
type List []any

// NewDict creates an empty dictionary
func NewDict() Dict {
	return make(Dict)
}

func (d Dict) SetString(key, value string)      { d[key] = value }
func (d Dict) SetBool(key string, value bool)   { d[key] = value }
func (d Dict) SetInt64(key string, value int64) { d[key] = value }
func (d Dict) SetUint64(key string, value uint64) {
	d[key] = value
}
func (d Dict) SetFloat64(key string, value float64) { d[key] = value }
func (d Dict) SetBytes(key string, value []byte)    { d[key] = value }
func (d Dict) SetList(key string, value List)       { d[key] = value }

// CreateDict stores a new empty dictionary under key and returns it
func (d Dict) CreateDict(key string) Dict {
	child := NewDict()
	d[key] = child
	return child
}

// Has reports whether key is present
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// TryGetString returns the string stored under key
func (d Dict) TryGetString(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// GetString returns the string under key, or def when absent or not a string
func (d Dict) GetString(key, def string) string {
	if s, ok := d.TryGetString(key); ok {
		return s
	}
	return def
}

// TryGetBool returns the bool stored under key
func (d Dict) TryGetBool(key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// GetBool returns the bool under key, or def
func (d Dict) GetBool(key string, def bool) bool {
	if b, ok := d.TryGetBool(key); ok {
		return b
	}
	return def
}

// TryGetUint64 returns the unsigned integer under key. Values decoded as other numeric
// kinds are accepted when they are non-negative integers.
func (d Dict) TryGetUint64(key string) (uint64, bool) {
	switch v := d[key].(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) && v <= math.MaxUint64 {
			return uint64(v), true
		}
	case json.Number:
		var u uint64
		if _, err := fmt.Sscan(v.String(), &u); err == nil {
			return u, true
		}
	}
	return 0, false
}

// GetUint64 returns the unsigned integer under key, or def
func (d Dict) GetUint64(key string, def uint64) uint64 {
	if u, ok := d.TryGetUint64(key); ok {
		return u
	}
	return def
}

// TryGetInt64 returns the signed integer under key
func (d Dict) TryGetInt64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v), true
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

// GetInt64 returns the signed integer under key, or def
func (d Dict) GetInt64(key string, def int64) int64 {
	if i, ok := d.TryGetInt64(key); ok {
		return i
	}
	return def
}

// TryGetFloat64 returns the number under key as a float64
func (d Dict) TryGetFloat64(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// GetFloat64 returns the number under key, or def
func (d Dict) GetFloat64(key string, def float64) float64 {
	if f, ok := d.TryGetFloat64(key); ok {
		return f
	}
	return def
}

// GetBytes returns a byte array. JSON has no byte type, so base64 strings are decoded.
func (d Dict) GetBytes(key string) ([]byte, error) {
	switch v := d[key].(type) {
	case nil:
		return nil, fmt.Errorf("%q: %w", key, ErrMissingKey)
	case []byte:
		return v, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w: %v", key, ErrTypeMismatch, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%q: %w: got %T", key, ErrTypeMismatch, v)
	}
}

// GetDict returns the dictionary stored under key
func (d Dict) GetDict(key string) (Dict, error) {
	switch v := d[key].(type) {
	case nil:
		return nil, fmt.Errorf("%q: %w", key, ErrMissingKey)
	case Dict:
		return v, nil
	case map[string]any:
		return Dict(v), nil
	default:
		return nil, fmt.Errorf("%q: %w: got %T", key, ErrTypeMismatch, v)
	}
}

// GetList returns the list stored under key
func (d Dict) GetList(key string) (List, error) {
	switch v := d[key].(type) {
	case nil:
		return nil, fmt.Errorf("%q: %w", key, ErrMissingKey)
	case List:
		return v, nil
	case []any:
		return List(v), nil
	default:
		return nil, fmt.Errorf("%q: %w: got %T", key, ErrTypeMismatch, v)
	}
}

// Dicts returns the list's elements as dictionaries, failing on the first element
// that is not one.
func (l List) Dicts() ([]Dict, error) {
	out := make([]Dict, 0, len(l))
	for i, v := range l {
		switch d := v.(type) {
		case Dict:
			out = append(out, d)
		case map[string]any:
			out = append(out, Dict(d))
		default:
			return nil, fmt.Errorf("element %d: %w: got %T", i, ErrTypeMismatch, v)
		}
	}
	return out, nil
}
