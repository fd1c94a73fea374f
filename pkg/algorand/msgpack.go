package algorand

import (
	"errors"
	"fmt"
	"math"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
)

// ErrEmptyObject is returned when there is nothing to encode or decode.
var ErrEmptyObject = errors.New("object is empty")

// EncodeObject encodes obj as canonical msgpack, the encoding used for
// transactions and other on-chain objects. Whole numbers decoded from JSON
// are encoded as integers.
func EncodeObject(obj map[string]any) ([]byte, error) {
	if len(obj) == 0 {
		return nil, ErrEmptyObject
	}
	return msgpack.Encode(normalizeNumbers(obj)), nil
}

// DecodeObject decodes a msgpack map into a JSON-compatible value. Binary
// fields are kept as []byte, which JSON renders as base64.
func DecodeObject(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, ErrEmptyObject
	}
	var obj map[string]any
	if err := msgpack.Decode(b, &obj); err != nil {
		return nil, fmt.Errorf("decoding msgpack: %w", err)
	}
	out, ok := jsonCompatible(obj).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoding msgpack: top-level value is not a map")
	}
	return out, nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x <= math.MaxInt64 {
			if x >= 0 {
				return uint64(x)
			}
			return int64(x)
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeNumbers(e)
		}
		return out
	default:
		return v
	}
}

// jsonCompatible rewrites the interface-keyed maps produced by the msgpack
// decoder into string-keyed ones.
func jsonCompatible(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonCompatible(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonCompatible(e)
		}
		return out
	default:
		return v
	}
}
