package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Key names one of the tracked counters
type Key string

const (
	KeyHeader  Key = "header"
	KeyLeft    Key = "left"
	KeyArticle Key = "article"
	KeyRight   Key = "right"
	KeyFooter  Key = "footer"
)

// keys is the canonical order used for batch reads and serialization
var keys = [...]Key{KeyHeader, KeyLeft, KeyArticle, KeyRight, KeyFooter}

// Keys returns the fixed counter keys in canonical order
func Keys() []Key {
	out := make([]Key, len(keys))
	copy(out, keys[:])
	return out
}

// ParseKey validates a raw key name
func ParseKey(raw string) (Key, error) {
	for _, k := range keys {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", &Error{Kind: KindInvalidKey, Op: "parse key", Key: raw}
}

// ParseDelta parses a signed base-10 increment.
func ParseDelta(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &Error{Kind: KindInvalidValue, Op: "parse delta", Err: err}
	}
	return v, nil
}

// AddDelta returns current+delta, failing when the sum leaves the int64 range
func AddDelta(current, delta int64) (int64, error) {
	sum := current + delta
	if (delta > 0 && sum < current) || (delta < 0 && sum > current) {
		return 0, &Error{
			Kind: KindInvalidValue,
			Op:   "add delta",
			Err:  fmt.Errorf("%d + %d overflows int64", current, delta),
		}
	}
	return sum, nil
}

// Counters is the full counter set. It always holds exactly the fixed keys.
type Counters struct {
	values [len(keys)]int64
}

// NewCounters returns a counter set with every key at zero
func NewCounters() Counters {
	return Counters{}
}

func index(k Key) int {
	for i, key := range keys {
		if key == k {
			return i
		}
	}
	return -1
}

// Get returns the value for a key; unknown keys read as zero
func (c Counters) Get(k Key) int64 {
	i := index(k)
	if i < 0 {
		return 0
	}
	return c.values[i]
}

// With returns a copy of the set with one key replaced. Unknown keys are ignored.
func (c Counters) With(k Key, v int64) Counters {
	if i := index(k); i >= 0 {
		c.values[i] = v
	}
	return c
}

// Map returns the counters as a plain map
func (c Counters) Map() map[string]int64 {
	m := make(map[string]int64, len(keys))
	for i, k := range keys {
		m[string(k)] = c.values[i]
	}
	return m
}

// MarshalJSON writes the keys in canonical order
func (c Counters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(k)))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(c.values[i], 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object with any subset of the fixed keys.
// Unknown keys are rejected.
func (c *Counters) UnmarshalJSON(data []byte) error {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NewCounters()
	for name, v := range raw {
		k, err := ParseKey(name)
		if err != nil {
			return err
		}
		out = out.With(k, v)
	}
	*c = out
	return nil
}
