package bencode

import (
	"bytes"
	"fmt"
	"strconv"
)

// Marshal encodes v into canonical bencoded bytes: dict entries are always
// emitted in lexicographic order of their raw key bytes, which is required
// both by BEP-3 and by our reconstructed info dict hashing correctly.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindInt:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.i, 10))
		buf.WriteByte('e')
	case KindBytes:
		buf.WriteString(strconv.Itoa(len(v.bytes)))
		buf.WriteByte(':')
		buf.Write(v.bytes)
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.list {
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		for _, key := range sortedKeys(v.dict) {
			val, _ := v.dict.GetBytes(key)
			if err := encode(buf, Bytes(key)); err != nil {
				return err
			}
			if err := encode(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	default:
		return fmt.Errorf("bencode: invalid value kind %v", v.kind)
	}
	return nil
}
