// Package canonical produces the deterministic JSON form used as the
// signing and hashing substrate for chain records. The contract:
// recursively key-sorted objects, array order preserved, scalar values
// verbatim, no whitespace. Relying on a default serializer's field
// order is not an option here, since independently built verifiers
// must reproduce the exact bytes.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal returns the canonical JSON encoding of record. Keys listed
// in omit are removed from the top-level object before encoding (the
// signature field is removed, not blanked, when signing an entry).
func Marshal(record any, omit ...string) ([]byte, error) {
	v, err := toValue(record)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		for _, k := range omit {
			delete(m, k)
		}
	}
	var buf bytes.Buffer
	if err := encodeSorted(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toValue reduces an arbitrary record (struct, map, slice) to the
// generic JSON value tree. Numbers are kept as json.Number so their
// textual form survives the round trip unchanged.
func toValue(record any) (any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonical: decode record: %w", err)
	}
	return v, nil
}

func encodeSorted(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k) // string key
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeSorted(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeSorted(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case json.Number:
		buf.WriteString(t.String())
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
