package audit

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/orgmesh/signedmsg/common/models"
)

// CanonicalBytes is the byte string that gets signed. It is the bincode
// (v1, fixint, little endian) layout of the event as core-domain produces
// it: id and kind as length-prefixed strings followed by the payload.
//
// The payload is written the way an untagged JSON value serializes:
// null writes nothing, booleans one byte, integers eight bytes (unsigned
// when non-negative), floats as IEEE 754 doubles, strings and arrays with a
// u64 length prefix, and objects as a length-prefixed map with keys in
// byte order.
func CanonicalBytes(event models.DomainEvent) ([]byte, error) {
	var buf bytes.Buffer
	writeString(&buf, event.ID)
	writeString(&buf, event.Kind)

	raw := bytes.TrimSpace(event.Payload)
	if len(raw) == 0 {
		return buf.Bytes(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := writeValue(&buf, payload); err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLen(buf *bytes.Buffer, n int) {
	_ = binary.Write(buf, binary.LittleEndian, uint64(n))
}

func writeString(buf *bytes.Buffer, s string) {
	writeLen(buf, len(s))
	buf.WriteString(s)
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
	case bool:
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case json.Number:
		return writeNumber(buf, val)
	case string:
		writeString(buf, val)
	case []interface{}:
		writeLen(buf, len(val))
		for _, item := range val {
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		writeLen(buf, len(keys))
		for _, k := range keys {
			writeString(buf, k)
			if err := writeValue(buf, val[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported payload value %T", v)
	}
	return nil
}

// writeNumber keeps integers that fit in 64 bits exact and falls back to a
// double for anything with a fraction, an exponent or out of range.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return binary.Write(buf, binary.LittleEndian, u)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return binary.Write(buf, binary.LittleEndian, i)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	return binary.Write(buf, binary.LittleEndian, math.Float64bits(f))
}
