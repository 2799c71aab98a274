package statuslog

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlainLineWritesJoinedArgs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	p.Line("hello", 42, "world")
	if got := buf.String(); got != "hello 42 world\n" {
		t.Fatalf("got %q", got)
	}
}

func TestPlainTorrentBlockIncludesMagnet(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	p.TorrentBlock("movie.mkv", "1.2.3.4:6881", "ABCDEF0123456789ABCDEF0123456789ABCDEF01")
	out := buf.String()
	if !strings.Contains(out, "BT Name:movie.mkv") {
		t.Fatalf("missing name: %s", out)
	}
	if !strings.Contains(out, "magnet:?xt=urn:btih:ABCDEF0123456789ABCDEF0123456789ABCDEF01") {
		t.Fatalf("missing magnet: %s", out)
	}
}

func TestTerminalTorrentBlockIsBoxed(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, 24)
	defer term.Close()
	term.TorrentBlock("movie.mkv", "1.2.3.4:6881", "ABCDEF0123456789ABCDEF0123456789ABCDEF01")
	out := buf.String()
	if !strings.Contains(out, "TORRENT") {
		t.Fatalf("missing title: %s", out)
	}
	if !strings.Contains(out, "┌─") || !strings.Contains(out, "└") {
		t.Fatalf("missing box borders: %s", out)
	}
}

func TestStripANSIRemovesEscapes(t *testing.T) {
	colored := colorize("hi", ansiCyan)
	if stripANSI(colored) != "hi" {
		t.Fatalf("got %q", stripANSI(colored))
	}
}

func TestTruncateVisualRespectsWidth(t *testing.T) {
	got := truncateVisual("abcdefgh", 3)
	if got != "abc" {
		t.Fatalf("got %q", got)
	}
}
