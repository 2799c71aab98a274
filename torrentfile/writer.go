package torrentfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/metadata"
)

// statusSink is the subset of statuslog.Sink the writer uses to announce
// fresh discoveries. Declared here, not imported from statuslog, per the
// same accept-interfaces idiom used across this codebase.
type statusSink interface {
	TorrentBlock(name, sender, infohashHex string)
}

// Writer persists discovered torrents to a text log and, optionally, as
// .torrent files on disk. It implements metadata.StorageSink.
//
// A single mutex guards both the log file and the written-this-run dedup
// set, mirroring the original implementation's single global output lock:
// writes are infrequent relative to the DHT's packet rate, so contention
// here is never the bottleneck.
type Writer struct {
	config Config

	mu      sync.Mutex
	written map[string]struct{}
	log     *os.File
	status  statusSink
}

// NewWriter returns a ready Writer. It creates config.Dir (if torrent
// writing is enabled) and opens config.LogPath for appending (unless
// config.PrintOnly is set, in which case the log block is written to
// stdout instead and no files are touched).
func NewWriter(config Config) (*Writer, error) {
	config.applyDefaults()

	w := &Writer{
		config:  config,
		written: make(map[string]struct{}),
	}

	if config.PrintOnly {
		return w, nil
	}

	if config.WriteTorrents {
		if err := os.MkdirAll(config.Dir, 0755); err != nil {
			return nil, fmt.Errorf("mkdir torrent dir: %s", err)
		}
	}

	f, err := os.OpenFile(config.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %s", err)
	}
	w.log = f

	return w, nil
}

// SetStatusSink attaches a user-facing status sink. Optional and
// nil-safe: with no sink attached, discoveries are only ever reflected in
// the text log / .torrent files, never as a boxed terminal block.
func (w *Writer) SetStatusSink(sink statusSink) {
	w.status = sink
}

// Close releases the underlying log file handle.
func (w *Writer) Close() error {
	if w.log == nil {
		return nil
	}
	return w.log.Close()
}

// SaveInfo implements metadata.StorageSink. It is a no-op, other than the
// dedup bookkeeping, for any infohash already written during this run.
func (w *Writer) SaveInfo(info metadata.Info, torrentBytes []byte, addr core.PeerAddress) error {
	hid := info.InfoHash.HexUpper()

	w.mu.Lock()
	if _, ok := w.written[hid]; ok {
		w.mu.Unlock()
		return nil
	}
	w.written[hid] = struct{}{}
	w.mu.Unlock()

	if w.status != nil {
		w.status.TorrentBlock(info.Name, addr.String(), info.InfoHash.HexUpper())
	}

	block := w.renderBlock(info, addr)

	if w.config.PrintOnly {
		fmt.Print(block)
		return nil
	}

	if err := w.appendLog(block); err != nil {
		return fmt.Errorf("append log: %s", err)
	}

	if w.config.WriteTorrents {
		if err := w.writeTorrentFile(info, torrentBytes); err != nil {
			return fmt.Errorf("write torrent file: %s", err)
		}
	}

	return nil
}

func (w *Writer) renderBlock(info metadata.Info, addr core.PeerAddress) string {
	var b []byte
	b = append(b, fmt.Sprintf("BT Name:%s\n", info.Name)...)
	b = append(b, fmt.Sprintf("Sender:('%s', %d)\n", addr.IP, addr.Port)...)
	b = append(b, fmt.Sprintf("infohash:%s\n", info.InfoHash.HexUpper())...)
	b = append(b, fmt.Sprintf("magnet:?xt=urn:btih:%s\n", info.InfoHash.HexUpper())...)

	n := len(info.Files)
	if n > w.config.MaxLoggedFiles {
		n = w.config.MaxLoggedFiles
	}
	for i := 0; i < n; i++ {
		path := filepath.Join(info.Files[i].Path...)
		b = append(b, fmt.Sprintf("   %s %d\n", path, info.Files[i].Length)...)
	}
	b = append(b, "\n\n"...)
	return string(b)
}

func (w *Writer) appendLog(block string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	bw := bufio.NewWriter(w.log)
	if _, err := bw.WriteString(block); err != nil {
		return err
	}
	return bw.Flush()
}

// writeTorrentFile writes torrentBytes atomically to
// <Dir>/<safeFilename(info.Name)>.torrent: it writes to a sibling temp
// file first and renames it into place, so a crash mid-write never leaves
// a truncated .torrent behind.
func (w *Writer) writeTorrentFile(info metadata.Info, torrentBytes []byte) error {
	name := safeFilename(info.Name, info.InfoHash.HexUpper())
	final := filepath.Join(w.config.Dir, name+".torrent")

	tmp, err := os.CreateTemp(w.config.Dir, ".torrentfile-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(torrentBytes); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, final)
}
