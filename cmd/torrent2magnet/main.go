// Command torrent2magnet reads a .torrent file and prints its magnet
// link. It is a standalone utility, independent of the harvester: it
// never touches the DHT or the metadata fetch pipeline.
package main

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"

	jackpalbencode "github.com/jackpal/bencode-go"

	"github.com/giuseppechecchia/L-Spider/bencode"
)

// torrentFile mirrors just enough of a .torrent's top-level structure to
// print a human-readable summary; the canonical info-hash is instead
// computed from the raw info-dict bytes (see infoHashFromFile), since
// round-tripping through a second decoder/encoder pair risks altering
// byte-for-byte encoding and producing the wrong hash.
type torrentFile struct {
	Info struct {
		Name string `bencode:"name"`
	} `bencode:"info"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <path-to-torrent-file>\n", os.Args[0])
		os.Exit(2)
	}
	path := os.Args[1]

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %s\n", path, err)
		os.Exit(1)
	}

	name, err := decodeName(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode %s: %s\n", path, err)
		os.Exit(1)
	}

	infoHash, err := infoHashFromFile(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compute infohash for %s: %s\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("name: %s\n", name)
	fmt.Printf("magnet:?xt=urn:btih:%s\n", infoHash)
}

// decodeName uses the jackpal/bencode-go decoder, a general-purpose
// struct-tag-driven bdecoder, purely for display purposes.
func decodeName(raw []byte) (string, error) {
	var t torrentFile
	if err := jackpalbencode.Unmarshal(bytes.NewReader(raw), &t); err != nil {
		return "", err
	}
	return t.Info.Name, nil
}

// infoHashFromFile locates the raw bytes of the top-level "info" value
// via the tolerant framing scan and hashes them directly -- the same
// technique the metadata fetcher and torrentfile writer use -- rather
// than decoding and re-encoding, so the result matches whatever bytes the
// remote peer actually served even if they weren't in strictly canonical
// form.
func infoHashFromFile(raw []byte) (string, error) {
	key := []byte("4:info")
	idx := bytes.Index(raw, key)
	if idx < 0 {
		return "", fmt.Errorf("missing info dict")
	}
	start := idx + len(key)
	n, err := bencode.ScanDict(raw[start:])
	if err != nil {
		return "", fmt.Errorf("scan info dict: %s", err)
	}
	infoBytes := raw[start : start+n]
	sum := sha1.Sum(infoBytes)
	return hex.EncodeToString(sum[:]), nil
}
