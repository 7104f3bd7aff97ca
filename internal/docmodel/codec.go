package docmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

var (
	typeOfStringMap = reflect.TypeOf(map[string]any(nil))

	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("docmodel: cbor encoder: %v", err))
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: typeOfStringMap,
		IntDec:         cbor.IntDecConvertNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("docmodel: cbor decoder: %v", err))
	}
}

// EncodeJSON serialises a document. Byte arrays become base64 strings.
func EncodeJSON(d Dict) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeJSON parses a document. Integers keep full 64-bit precision: non-negative
// integers decode as uint64, negative ones as int64, anything else as float64.
func DecodeJSON(data []byte) (Dict, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode document: %w: top level is null", ErrTypeMismatch)
	}
	return normalize(raw).(Dict), nil
}

// EncodeCBOR serialises a document using canonical CBOR
func EncodeCBOR(d Dict) ([]byte, error) {
	return cborEnc.Marshal(map[string]any(d))
}

// DecodeCBOR parses a CBOR document
func DecodeCBOR(data []byte) (Dict, error) {
	var raw map[string]any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode document: %w: top level is null", ErrTypeMismatch)
	}
	return normalize(raw).(Dict), nil
}

// normalize converts decoder output into the document value set
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		d := make(Dict, len(t))
		for k, e := range t {
			d[k] = normalize(e)
		}
		return d
	case Dict:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		l := make(List, len(t))
		for i, e := range t {
			l[i] = normalize(e)
		}
		return l
	case json.Number:
		s := t.String()
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return s
	case int:
		return int64(t)
	case uint:
		return uint64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// UnmarshalJSON lets a Dict sit inside request bodies and JSONB columns while keeping
// the same number handling as DecodeJSON.
func (d *Dict) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*d = nil
		return nil
	}
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}

// UnmarshalYAML lets a Dict sit inside YAML fixtures. Integers decode as int64 or uint64.
func (d *Dict) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*d = nil
		return nil
	}
	*d = normalize(raw).(Dict)
	return nil
}
