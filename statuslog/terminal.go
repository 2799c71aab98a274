package statuslog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[36m"
	ansiGreen = "\x1b[32m"
)

// Terminal is a Sink that pins a single status line at the top row of the
// screen via a VT100 scroll-region, while everything else scrolls below
// it -- the same technique the source implementation uses, minus its
// signal-handling: callers are expected to invoke Close on shutdown to
// restore the terminal instead of installing SIGINT/SIGTERM handlers
// themselves.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	rows     int
	active   bool
	lastLine string
}

// NewTerminal returns a Terminal sink writing ANSI escapes to out, which
// is assumed to be a real terminal with rows lines.
func NewTerminal(out io.Writer, rows int) *Terminal {
	if rows < 3 {
		rows = 24
	}
	t := &Terminal{out: out, rows: rows}
	t.initScrollRegion()
	return t
}

func (t *Terminal) initScrollRegion() {
	if t.active {
		return
	}
	t.active = true
	fmt.Fprintf(t.out, "\x1b[2;%dr", t.rows)
	fmt.Fprintf(t.out, "\x1b[%d;1H", t.rows)
}

// Close restores the full-screen scroll region. Safe to call once on
// shutdown.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	t.active = false
	_, err := fmt.Fprint(t.out, "\x1b[r")
	return err
}

func (t *Terminal) Status(args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drawStatusLocked(join(args))
}

func (t *Terminal) drawStatusLocked(msg string) {
	t.lastLine = msg
	line := strings.TrimRight(fmt.Sprintf("[ DHT ] %s", msg), " ")
	line = colorize(line, ansiGreen)
	if len(line) > 800 {
		line = line[:800]
	}
	fmt.Fprint(t.out, "\x1b7\x1b[1;1H\x1b[2K", line, "\x1b8")
}

func (t *Terminal) Line(args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, join(args))
	if t.lastLine != "" {
		t.drawStatusLocked(t.lastLine)
	}
}

func (t *Terminal) Meta(args ...interface{}) {
	t.Line(colorize("[INFO][META]", ansiCyan), join(args))
}

func (t *Terminal) TorrentBlock(name, sender, infohashHex string) {
	hColored := colorize(infohashHex, ansiCyan)
	magnet := fmt.Sprintf("magnet:?xt=urn:btih:%s", infohashHex)
	magnetColored := colorize(magnet, ansiGreen)

	lines := []string{
		fmt.Sprintf("%s %s", colorize("BT Name:", ansiDim), name),
		fmt.Sprintf("%s %s", colorize("Sender:", ansiDim), sender),
		fmt.Sprintf("%s %s", colorize("infohash:", ansiDim), hColored),
		fmt.Sprintf("%s %s", colorize("magnet:", ansiDim), magnetColored),
	}
	for _, row := range box(colorize("TORRENT", ansiBold), lines, 140) {
		t.Line(row)
	}
}

func colorize(s, color string) string {
	return color + s + ansiReset
}

// box renders lines inside a simple box-drawing frame, matching the
// source renderer's layout. ANSI escapes are stripped when measuring
// width so colored text doesn't throw off alignment.
func box(title string, lines []string, maxWidth int) []string {
	titleW := visualWidth(title)
	w := titleW
	for _, l := range lines {
		if lw := visualWidth(l); lw > w {
			w = lw
		}
	}
	if w > maxWidth {
		w = maxWidth
	}

	out := make([]string, 0, len(lines)+2)
	out = append(out, "┌─ "+title+strings.Repeat(" ", w-titleW)+" ─┐")
	for _, raw := range lines {
		truncated := truncateVisual(raw, w)
		pad := strings.Repeat(" ", w-visualWidth(truncated))
		out = append(out, "│  "+truncated+pad+"  │")
	}
	out = append(out, "└"+strings.Repeat("─", w+4)+"┘")
	return out
}

func visualWidth(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			j := i + 1
			if j < len(s) && s[j] == '[' {
				j++
				for j < len(s) && s[j] != 'm' {
					j++
				}
				i = j
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func truncateVisual(s string, maxWidth int) string {
	if visualWidth(s) <= maxWidth {
		return s
	}
	var b strings.Builder
	w := 0
	for i := 0; i < len(s); {
		if s[i] == '\x1b' {
			j := i + 1
			if j < len(s) && s[j] == '[' {
				j++
				for j < len(s) && s[j] != 'm' {
					j++
				}
				b.WriteString(s[i : j+1])
				i = j + 1
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if w+1 > maxWidth {
			break
		}
		b.WriteRune(r)
		w++
		i += size
	}
	return b.String()
}
