package version

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// GenerateInputHash returns a stable hex digest of record. Key order does not
// matter and non-finite floats are encoded by name, so NaN inputs still hash.
func GenerateInputHash(record map[string]any) (string, error) {
	if record == nil {
		return "", ErrNilInput
	}
	var buf bytes.Buffer
	if err := encode(&buf, record); err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 16), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		b, _ := json.Marshal(x)
		buf.Write(b)
	case float64:
		writeFloat(buf, x)
	case float32:
		writeFloat(buf, float64(x))
	case int:
		buf.WriteString(strconv.Itoa(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case *float64:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		writeFloat(buf, *x)
	case fmt.Stringer:
		return encode(buf, x.String())
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			return encode(buf, rv.String())
		}
		return fmt.Errorf("unsupported value of type %T", v)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"+Inf"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Inf"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}
