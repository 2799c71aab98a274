package dht

import (
	"path/filepath"
	"testing"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/peerstore"
)

func pstoreConfig(t *testing.T) peerstore.Config {
	t.Helper()
	return peerstore.Config{Path: filepath.Join(t.TempDir(), "bootstrap.jsonl")}
}

func encodeGetPeersLikeQuery(tid []byte, ih core.InfoHash) ([]byte, error) {
	id, err := core.NewRandomNodeID()
	if err != nil {
		return nil, err
	}
	a := bencode.NewDict()
	a.Set("id", bencode.Bytes(id.Bytes()))
	a.Set("info_hash", bencode.Bytes(ih.Bytes()))

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("q"))
	msg.Set("q", bencode.String("get_peers"))
	msg.Set("a", bencode.DictValue(a))

	return bencode.Marshal(bencode.DictValue(msg))
}

func encodeAnnouncePeerLikeQuery(tid []byte, ih core.InfoHash, token []byte, port int, implied bool) ([]byte, error) {
	id, err := core.NewRandomNodeID()
	if err != nil {
		return nil, err
	}
	a := bencode.NewDict()
	a.Set("id", bencode.Bytes(id.Bytes()))
	a.Set("info_hash", bencode.Bytes(ih.Bytes()))
	a.Set("token", bencode.Bytes(token))
	a.Set("port", bencode.Int(int64(port)))
	if implied {
		a.Set("implied_port", bencode.Int(1))
	}

	msg := bencode.NewDict()
	msg.Set("t", bencode.Bytes(tid))
	msg.Set("y", bencode.String("q"))
	msg.Set("q", bencode.String("announce_peer"))
	msg.Set("a", bencode.DictValue(a))

	return bencode.Marshal(bencode.DictValue(msg))
}
