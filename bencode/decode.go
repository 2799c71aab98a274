package bencode

import (
	"fmt"
	"sort"
	"strconv"
)

// Unmarshal decodes a single bencoded value from b. The entire buffer must
// be consumed by exactly one value; trailing bytes are an error. Use Decode
// when trailing bytes (e.g. piece payload following a header dict) are
// expected.
func Unmarshal(b []byte) (Value, error) {
	v, n, err := Decode(b)
	if err != nil {
		return Value{}, err
	}
	if n != len(b) {
		return Value{}, fmt.Errorf("bencode: %d trailing bytes after value", len(b)-n)
	}
	return v, nil
}

// Decode parses exactly one bencoded value starting at b[0], returning the
// value and the number of bytes it consumed. It does not require b to be
// fully consumed, which lets callers extract a header dict from a buffer
// that also contains trailing binary payload.
func Decode(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, fmt.Errorf("bencode: empty input")
	}
	switch b[0] {
	case 'i':
		return decodeInt(b)
	case 'l':
		return decodeList(b)
	case 'd':
		return decodeDict(b)
	default:
		if b[0] >= '0' && b[0] <= '9' {
			return decodeBytes(b)
		}
		return Value{}, 0, fmt.Errorf("bencode: invalid leading byte %q", b[0])
	}
}

func decodeInt(b []byte) (Value, int, error) {
	end := indexByte(b, 1, 'e')
	if end < 0 {
		return Value{}, 0, fmt.Errorf("bencode: unterminated integer")
	}
	digits := string(b[1:end])
	if digits == "" || digits == "-" {
		return Value{}, 0, fmt.Errorf("bencode: empty integer")
	}
	// Reject leading zeros ("i03e") and negative zero ("i-0e"), which
	// BEP-3 forbids as non-canonical.
	if (len(digits) > 1 && digits[0] == '0') ||
		(len(digits) > 2 && digits[0] == '-' && digits[1] == '0') ||
		digits == "-0" {
		return Value{}, 0, fmt.Errorf("bencode: non-canonical integer %q", digits)
	}
	i, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Value{}, 0, fmt.Errorf("bencode: invalid integer %q: %s", digits, err)
	}
	return Int(i), end + 1, nil
}

func decodeBytes(b []byte) (Value, int, error) {
	colon := indexByte(b, 0, ':')
	if colon < 0 {
		return Value{}, 0, fmt.Errorf("bencode: malformed byte-string length")
	}
	n, err := strconv.Atoi(string(b[:colon]))
	if err != nil || n < 0 {
		return Value{}, 0, fmt.Errorf("bencode: invalid byte-string length %q", b[:colon])
	}
	start := colon + 1
	end := start + n
	if end > len(b) {
		return Value{}, 0, fmt.Errorf("bencode: byte-string length %d exceeds input", n)
	}
	return Bytes(b[start:end]), end, nil
}

func decodeList(b []byte) (Value, int, error) {
	pos := 1
	var items []Value
	for {
		if pos >= len(b) {
			return Value{}, 0, fmt.Errorf("bencode: unterminated list")
		}
		if b[pos] == 'e' {
			return List(items...), pos + 1, nil
		}
		v, n, err := Decode(b[pos:])
		if err != nil {
			return Value{}, 0, fmt.Errorf("bencode: list item: %s", err)
		}
		items = append(items, v)
		pos += n
	}
}

func decodeDict(b []byte) (Value, int, error) {
	pos := 1
	d := NewDict()
	for {
		if pos >= len(b) {
			return Value{}, 0, fmt.Errorf("bencode: unterminated dict")
		}
		if b[pos] == 'e' {
			return DictValue(d), pos + 1, nil
		}
		keyVal, n, err := decodeBytes(b[pos:])
		if err != nil {
			return Value{}, 0, fmt.Errorf("bencode: dict key: %s", err)
		}
		pos += n
		key, _ := keyVal.RawBytes()
		if pos >= len(b) {
			return Value{}, 0, fmt.Errorf("bencode: dict missing value for key %q", key)
		}
		val, n, err := Decode(b[pos:])
		if err != nil {
			return Value{}, 0, fmt.Errorf("bencode: dict value for key %q: %s", key, err)
		}
		pos += n
		d.SetBytes(append([]byte(nil), key...), val)
	}
}

func indexByte(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// sortedKeys returns d's keys sorted lexicographically by raw bytes, the
// order Encode must emit dict entries in (BEP-3).
func sortedKeys(d *Dict) [][]byte {
	entries := d.Entries()
	keys := make([][]byte, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i]) < string(keys[j])
	})
	return keys
}
