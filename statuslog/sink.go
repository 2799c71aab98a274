// Package statuslog implements the terminal-facing status renderer: a
// pinned status line plus a scrolling log of discovered torrents and
// diagnostic messages. It is deliberately thin glue between the core
// harvester and a terminal -- none of dht, metadata, or dispatch import
// it; dht and dispatch declare their own small interfaces that Sink
// satisfies.
package statuslog

import (
	"fmt"
	"strings"
)

// Sink is the terminal output surface. dht, metadata, and dispatch never
// see this interface: cmd/dht-spider wires a Sink into whichever of their
// loggers needs user-facing output, independent of the structured zap
// logging used for diagnostics.
type Sink interface {
	// Status overwrites the single pinned status line (e.g. queue depth,
	// worker counts). Frequent calls are expected; it never scrolls.
	Status(args ...interface{})

	// Line appends one line to the scrolling log region.
	Line(args ...interface{})

	// Meta appends a tagged informational line, used for per-fetch
	// diagnostic detail (ext_fail reasons, bad_pieces sizes, and so on).
	Meta(args ...interface{})

	// TorrentBlock renders a boxed summary of one freshly discovered
	// torrent.
	TorrentBlock(name, sender, infohashHex string)
}

// join renders args the way Python's " ".join(str(a) for a in args) would:
// every argument stringified and space-separated, regardless of type.
func join(args []interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}
