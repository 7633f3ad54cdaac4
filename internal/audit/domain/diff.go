package domain

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
)

// Diff is a flat key to value mapping used for changes, previous values and metadata.
//
// Its canonical form is a 4-byte big-endian entry count followed by each key and value,
// length-prefixed, in ascending key order. Nil and empty diffs are indistinguishable.
type Diff map[string]string

// Keys returns the keys in ascending order.
func (d Diff) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AppendCanonical appends the canonical serialization of d to buf.
func (d Diff) AppendCanonical(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(d)))
	for _, k := range d.Keys() {
		buf = AppendLengthPrefixed(buf, k)
		buf = AppendLengthPrefixed(buf, d[k])
	}
	return buf
}

// Clone returns a copy of d. A nil or empty diff clones to nil.
func (d Diff) Clone() Diff {
	if len(d) == 0 {
		return nil
	}
	out := make(Diff, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// AppendLengthPrefixed appends a 4-byte big-endian length followed by s.
func AppendLengthPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// FormatChanges compares two snapshots of a record and returns the fields of after whose JSON
// encoding differs from before, with their new and old values. Fields present only in before
// are not reported.
func FormatChanges(before, after map[string]any) (changes, previousValues Diff) {
	for key, newValue := range after {
		oldValue, existed := before[key]
		if existed && bytes.Equal(jsonValue(oldValue), jsonValue(newValue)) {
			continue
		}
		if changes == nil {
			changes, previousValues = Diff{}, Diff{}
		}
		changes[key] = formatValue(newValue)
		if existed {
			previousValues[key] = formatValue(oldValue)
		} else {
			previousValues[key] = ""
		}
	}
	return changes, previousValues
}

func jsonValue(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf("%#v", v))
	}
	return b
}

// formatValue renders strings as-is, nil as "" and everything else as JSON.
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	}
	return string(jsonValue(v))
}
