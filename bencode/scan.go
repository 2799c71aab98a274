package bencode

import "fmt"

// ScanValue performs a tolerant recursive-descent scan of a single bencoded
// value starting at b[0], returning only the number of bytes it occupies.
// It differs from Decode in that it is used purely for framing: extracting
// the piece data that a ut_metadata data message appends after its header
// dict, where that header dict structure itself is of no further interest.
// ScanValue walks the same structure as Decode but is looser: it does not
// validate the contents of integers (so "i03e" or "ixe" scan fine). It is
// kept distinct because framing callers want a small, non-allocating walk
// that never needs to materialize a Value tree.
func ScanValue(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("bencode: empty input")
	}
	switch {
	case b[0] == 'i':
		end := indexByte(b, 1, 'e')
		if end < 0 {
			return 0, fmt.Errorf("bencode: unterminated integer")
		}
		return end + 1, nil
	case b[0] == 'l':
		return scanContainer(b, 'l')
	case b[0] == 'd':
		return scanContainer(b, 'd')
	case b[0] >= '0' && b[0] <= '9':
		colon := indexByte(b, 0, ':')
		if colon < 0 {
			return 0, fmt.Errorf("bencode: malformed byte-string length")
		}
		n := 0
		for _, c := range b[:colon] {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("bencode: invalid byte-string length")
			}
			n = n*10 + int(c-'0')
		}
		end := colon + 1 + n
		if end > len(b) {
			return 0, fmt.Errorf("bencode: byte-string length %d exceeds input", n)
		}
		return end, nil
	default:
		return 0, fmt.Errorf("bencode: invalid leading byte %q", b[0])
	}
}

func scanContainer(b []byte, open byte) (int, error) {
	pos := 1
	for {
		if pos >= len(b) {
			return 0, fmt.Errorf("bencode: unterminated %q container", open)
		}
		if b[pos] == 'e' {
			return pos + 1, nil
		}
		if open == 'd' {
			// Dict keys are always byte strings; scan the key, then fall
			// through to scan its value below.
			n, err := ScanValue(b[pos:])
			if err != nil {
				return 0, fmt.Errorf("bencode: dict key: %s", err)
			}
			pos += n
			if pos >= len(b) {
				return 0, fmt.Errorf("bencode: dict missing value")
			}
		}
		n, err := ScanValue(b[pos:])
		if err != nil {
			return 0, fmt.Errorf("bencode: container item: %s", err)
		}
		pos += n
	}
}

// ScanDict scans the single outer dict at the start of b and returns the
// byte offset immediately past its matching 'e', so that any trailing bytes
// (e.g. raw piece data appended after a ut_metadata data message's header)
// can be sliced off by the caller. Returns an error if b does not begin
// with a well-formed dict.
func ScanDict(b []byte) (int, error) {
	if len(b) == 0 || b[0] != 'd' {
		return 0, fmt.Errorf("bencode: expected dict")
	}
	return scanContainer(b, 'd')
}
