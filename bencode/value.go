// Package bencode implements BEP-3 bencoding as a tagged-variant value
// model rather than Go struct reflection, because the KRPC and ut_metadata
// wire paths need two properties no struct-marshaling library gives us:
// dict keys that survive as raw, unvalidated byte strings (peers send
// arbitrary binary "y"/"t"/"token" values we must echo back byte-for-byte),
// and encoder output with dict entries in strict lexicographic-byte key
// order, which is what makes the reconstructed info dict hash to the
// infohash that was announced for it.
package bencode

import "fmt"

// Kind tags the dynamic type carried by a Value.
type Kind int

// The four bencode value kinds.
const (
	KindInt Kind = iota
	KindBytes
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is a bencoded value: exactly one of an integer, a raw byte string, a
// list of Values, or a dict of raw-byte-string keys to Values.
type Value struct {
	kind  Kind
	i     int64
	bytes []byte
	list  []Value
	dict  *Dict
}

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Bytes returns a byte-string Value. b is not copied; callers must not
// mutate it after passing it in.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// String returns a byte-string Value built from a Go string.
func String(s string) Value { return Bytes([]byte(s)) }

// List returns a list Value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// DictValue returns a dict Value wrapping d.
func DictValue(d *Dict) Value { return Value{kind: KindDict, dict: d} }

// Kind reports v's dynamic type.
func (v Value) Kind() Kind { return v.kind }

// Int64 returns v's integer value, or ok=false if v is not a KindInt.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// RawBytes returns v's byte-string value, or ok=false if v is not KindBytes.
func (v Value) RawBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

// Str returns v's byte-string value cast to a Go string, or ok=false if v
// is not KindBytes.
func (v Value) Str() (string, bool) {
	b, ok := v.RawBytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

// ListItems returns v's list items, or ok=false if v is not KindList.
func (v Value) ListItems() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsDict returns v's dict, or ok=false if v is not KindDict.
func (v Value) AsDict() (*Dict, bool) {
	if v.kind != KindDict {
		return nil, false
	}
	return v.dict, true
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindBytes:
		return fmt.Sprintf("%q", v.bytes)
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindDict:
		return v.dict.String()
	default:
		return "<invalid bencode value>"
	}
}

// dictEntry is a single key/value pair in a Dict, kept in the order it was
// inserted (decode order, or caller insertion order when building a Dict by
// hand). Encode re-sorts by key regardless of this order.
type dictEntry struct {
	key   []byte
	value Value
}

// Dict is an ordered map from raw byte-string keys to Values. Insertion
// order is preserved for iteration via Entries, but Encode always emits
// entries sorted lexicographically by raw key bytes, per BEP-3.
type Dict struct {
	entries []dictEntry
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{}
}

// Get returns the value associated with key, or ok=false if absent.
func (d *Dict) Get(key string) (Value, bool) {
	return d.GetBytes([]byte(key))
}

// GetBytes is Get with a raw byte-string key.
func (d *Dict) GetBytes(key []byte) (Value, bool) {
	for _, e := range d.entries {
		if string(e.key) == string(key) {
			return e.value, true
		}
	}
	return Value{}, false
}

// Set inserts or replaces the value for key.
func (d *Dict) Set(key string, v Value) {
	d.SetBytes([]byte(key), v)
}

// SetBytes is Set with a raw byte-string key.
func (d *Dict) SetBytes(key []byte, v Value) {
	for i, e := range d.entries {
		if string(e.key) == string(key) {
			d.entries[i].value = v
			return
		}
	}
	d.entries = append(d.entries, dictEntry{key: key, value: v})
}

// Entries returns the dict's entries in insertion order.
func (d *Dict) Entries() []struct {
	Key   []byte
	Value Value
} {
	out := make([]struct {
		Key   []byte
		Value Value
	}, len(d.entries))
	for i, e := range d.entries {
		out[i].Key = e.key
		out[i].Value = e.value
	}
	return out
}

// Len reports the number of entries in d.
func (d *Dict) Len() int {
	return len(d.entries)
}

func (d *Dict) String() string {
	return fmt.Sprintf("dict(%d entries)", len(d.entries))
}

// GetInt is a convenience wrapper combining Get and Int64.
func (d *Dict) GetInt(key string) (int64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int64()
}

// GetString is a convenience wrapper combining Get and Str.
func (d *Dict) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// GetDict is a convenience wrapper combining Get and AsDict.
func (d *Dict) GetDict(key string) (*Dict, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsDict()
}
