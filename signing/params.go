package signing

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Params are the caller supplied request parameters.
type Params map[string]any

// Canonical holds every parameter as its canonical text.
type Canonical map[string]string

// floatPrecision matches the fixed notation used by the server side reference
// implementation before trailing zeros are trimmed.
const floatPrecision = 6

// Normalize converts params into their canonical text form. It does not inject
// defaults and never mutates params.
func Normalize(params Params) (Canonical, error) {
	out := make(Canonical, len(params))
	for key, value := range params {
		if !utf8.ValidString(key) {
			return nil, &EncodingError{Key: key, Reason: "key is not valid UTF-8"}
		}
		text, err := normalizeValue(value)
		if err != nil {
			return nil, &EncodingError{Key: key, Reason: err.Error()}
		}
		if !utf8.ValidString(text) {
			return nil, &EncodingError{Key: key, Reason: "value is not valid UTF-8"}
		}
		out[key] = text
	}
	return out, nil
}

func normalizeValue(value any) (string, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case nil:
		return "", fmt.Errorf("nil value")
	}

	if s, ok := value.(fmt.Stringer); ok {
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", fmt.Errorf("nil %T", value)
		}
		return s.String(), nil
	}
	return "", fmt.Errorf("unsupported type %T", value)
}

func formatFloat(v float64, bitSize int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite float %v", v)
	}
	s := strconv.FormatFloat(v, 'f', floatPrecision, bitSize)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, "."), nil
}

// Keys returns the parameter names in ascending order.
func (c Canonical) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (c Canonical) Clone() Canonical {
	out := make(Canonical, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
