package statuslog

import (
	"fmt"
	"io"
	"sync"
)

// Plain is a Sink that writes straight lines with no cursor control,
// suitable for piped output or a non-tty terminal. Status lines are
// simply appended rather than overwritten in place.
type Plain struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlain returns a Plain sink writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Status(args ...interface{}) {
	p.writeLine("[ DHT ] " + join(args))
}

func (p *Plain) Line(args ...interface{}) {
	p.writeLine(join(args))
}

func (p *Plain) Meta(args ...interface{}) {
	p.writeLine("[INFO][META] " + join(args))
}

func (p *Plain) TorrentBlock(name, sender, infohashHex string) {
	p.writeLine(fmt.Sprintf("BT Name:%s", name))
	p.writeLine(fmt.Sprintf("Sender:%s", sender))
	p.writeLine(fmt.Sprintf("infohash:%s", infohashHex))
	p.writeLine(fmt.Sprintf("magnet:?xt=urn:btih:%s", infohashHex))
}

func (p *Plain) writeLine(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}
