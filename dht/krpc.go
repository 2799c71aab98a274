package dht

import (
	"crypto/rand"
	"fmt"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
)

// newTransactionID returns n random bytes, used as a KRPC "t" field. The
// node never tracks outstanding transactions: since it queries only to
// attract replies, not to consume them semantically, any reply carrying a
// recognizable "r" shape is accepted regardless of its "t".
func newTransactionID(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random transaction id: %s", err)
	}
	return b, nil
}

func encodeFindNodeQuery(tid []byte, id, target core.NodeID) ([]byte, error) {
	a := bencode.NewDict()
	a.Set("id", bencode.Bytes(id.Bytes()))
	a.Set("target", bencode.Bytes(target.Bytes()))

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("q"))
	msg.Set("q", bencode.String("find_node"))
	msg.Set("a", bencode.DictValue(a))

	return bencode.Marshal(bencode.DictValue(msg))
}

func encodeGetPeersReply(tid []byte, id core.NodeID, token []byte) ([]byte, error) {
	r := bencode.NewDict()
	r.Set("id", bencode.Bytes(id.Bytes()))
	r.Set("nodes", bencode.String(""))
	r.Set("token", bencode.Bytes(token))

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("r"))
	msg.Set("r", bencode.DictValue(r))

	return bencode.Marshal(bencode.DictValue(msg))
}

func encodeOkReply(tid []byte, id core.NodeID) ([]byte, error) {
	r := bencode.NewDict()
	r.Set("id", bencode.Bytes(id.Bytes()))

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("r"))
	msg.Set("r", bencode.DictValue(r))

	return bencode.Marshal(bencode.DictValue(msg))
}

func encodeServerErrorReply(tid []byte) ([]byte, error) {
	errList := bencode.List(bencode.Int(202), bencode.String("Server Error"))

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("e"))
	msg.Set("e", errList)

	return bencode.Marshal(bencode.DictValue(msg))
}

// inboundMessage is the decoded shape of anything the node might receive:
// a query ("q"), a response ("r"), or an error ("e"). Only the fields this
// node actually inspects are extracted.
type inboundMessage struct {
	tid []byte
	y   string
	q   string
	a   *bencode.Dict
	r   *bencode.Dict
}

// decodeInboundMessage parses a raw datagram into an inboundMessage.
// Malformed bencode, or a message missing its "y" field, is reported as an
// error so the caller can silently drop it -- the DHT is adversarial and
// most garbage hitting this socket is not worth logging.
func decodeInboundMessage(b []byte) (*inboundMessage, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty datagram")
	}
	// Fast reject: every valid bencoded value starts with one of these
	// bytes, matching the original implementation's leading-byte filter.
	switch b[0] {
	case 'd', 'l', 'i', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		return nil, fmt.Errorf("not bencode")
	}

	v, err := bencode.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	d, ok := v.AsDict()
	if !ok {
		return nil, fmt.Errorf("top-level value is not a dict")
	}

	msg := &inboundMessage{}
	if tid, ok := d.Get("t"); ok {
		msg.tid, _ = tid.RawBytes()
	}
	if y, ok := d.GetString("y"); ok {
		msg.y = y
	} else {
		return nil, fmt.Errorf("missing y field")
	}
	if q, ok := d.GetString("q"); ok {
		msg.q = q
	}
	if a, ok := d.GetDict("a"); ok {
		msg.a = a
	}
	if r, ok := d.GetDict("r"); ok {
		msg.r = r
	}
	return msg, nil
}
