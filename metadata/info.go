package metadata

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
)

// FileEntry is a single file listed in a multi-file torrent's info dict.
type FileEntry struct {
	Length int64
	Path   []string
}

// Info is the decoded, storage-ready representation of a fetched torrent's
// info dict, passed to a StorageSink alongside the raw reconstructed
// torrent bytes.
type Info struct {
	InfoHash  core.InfoHash
	Name      string
	TotalSize int64
	Files     []FileEntry
	PeerIP    string
}

// StorageSink persists a successfully fetched and verified torrent. The
// Fetcher holds no other reference to storage; this is its entire output
// surface.
type StorageSink interface {
	SaveInfo(info Info, torrentBytes []byte, addr core.PeerAddress) error
}

// decodeInfo builds an Info from the verified info-dict value, the
// infohash, and the address of the peer it was fetched from.
func decodeInfo(ih core.InfoHash, infoVal bencode.Value, addr core.PeerAddress) Info {
	info := Info{InfoHash: ih, PeerIP: addr.IP}

	d, ok := infoVal.AsDict()
	if !ok {
		return info
	}

	encodingName, _ := d.GetString("encoding")

	rawName := pickField(d, "name.utf-8", "name")
	info.Name = strings.TrimSpace(decodeTorrentText(rawName, encodingName))

	if filesVal, ok := d.Get("files"); ok {
		if items, ok := filesVal.ListItems(); ok {
			var total int64
			files := make([]FileEntry, 0, len(items))
			for _, item := range items {
				fd, ok := item.AsDict()
				if !ok {
					continue
				}
				length, _ := fd.GetInt("length")
				total += length

				rawPath := pickField(fd, "path.utf-8", "path")
				files = append(files, FileEntry{
					Length: length,
					Path:   decodePathList(rawPath, encodingName),
				})
			}
			info.Files = files
			info.TotalSize = total
		}
	} else if length, ok := d.GetInt("length"); ok {
		info.TotalSize = length
	}

	return info
}

func pickField(d *bencode.Dict, preferred, fallback string) bencode.Value {
	if v, ok := d.Get(preferred); ok {
		return v
	}
	v, _ := d.Get(fallback)
	return v
}

// decodeTorrentText decodes raw torrent text bytes, preferring strict
// UTF-8, falling back to the info dict's declared legacy encoding (if
// any), and finally replacing invalid byte sequences so callers always get
// a usable string rather than an error.
func decodeTorrentText(v bencode.Value, encodingName string) string {
	raw, ok := v.RawBytes()
	if !ok {
		return ""
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	if encodingName != "" {
		if enc, err := ianaindex.IANA.Encoding(encodingName); err == nil && enc != nil {
			if decoded, _, err := transform.Bytes(enc.NewDecoder(), raw); err == nil {
				return string(decoded)
			}
		}
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func decodePathList(v bencode.Value, encodingName string) []string {
	items, ok := v.ListItems()
	if !ok {
		return nil
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, decodeTorrentText(item, encodingName))
	}
	return parts
}

// reconstructTorrentBytes wraps the verified raw bencoded info dict back
// into a minimal single-key torrent file: d4:info<metadata>e.
func reconstructTorrentBytes(metadata []byte) []byte {
	out := make([]byte, 0, len(metadata)+10)
	out = append(out, "d4:info"...)
	out = append(out, metadata...)
	out = append(out, 'e')
	return out
}
