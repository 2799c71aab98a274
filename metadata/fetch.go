package metadata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
)

// Fetcher performs opportunistic BEP-9 metadata retrieval against a single
// peer at a time. It is stateless between calls to Fetch: every call opens
// its own TCP connection and tears it down on every exit path.
type Fetcher struct {
	config Config
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// NewFetcher returns a ready Fetcher.
func NewFetcher(config Config, logger *zap.SugaredLogger, stats tally.Scope) *Fetcher {
	config.applyDefaults()
	return &Fetcher{
		config: config,
		logger: logger,
		stats:  stats.Tagged(map[string]string{"module": "metadata"}),
	}
}

// Fetch dials addr, retrieves and verifies infohash's metadata, and on
// success hands the decoded Info and reconstructed torrent bytes to sink.
// It never returns a Go error: every outcome, including the inability to
// connect at all, is reported as a Status so the caller (the dispatcher)
// can apply its own bookkeeping uniformly.
func (f *Fetcher) Fetch(addr core.PeerAddress, ih core.InfoHash, sink StorageSink) Status {
	hid := ih.HexUpper()

	conn, err := f.dial(addr)
	if err != nil {
		f.logger.Infow("metadata connect failed", "infohash", hid, "addr", addr, "error", err)
		return classifyDialError(err)
	}
	defer conn.Close()

	f.logger.Debugw("metadata connect", "infohash", hid, "addr", addr)

	status := f.run(conn, addr, ih, sink)
	f.stats.Counter(fmt.Sprintf("fetch.%s", status)).Inc(1)
	return status
}

func (f *Fetcher) dial(addr core.PeerAddress) (net.Conn, error) {
	var conn net.Conn
	operation := func() error {
		c, err := net.DialTimeout("tcp", addr.String(), f.config.DialTimeout)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if f.config.DialRetries > 0 {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.config.DialRetries))
	}
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return conn, nil
}

func classifyDialError(err error) Status {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return StatusTimeout
	}
	return StatusOSError
}

func (f *Fetcher) run(conn net.Conn, addr core.PeerAddress, ih core.InfoHash, sink StorageSink) Status {
	peerID, err := newPeerID()
	if err != nil {
		return StatusException
	}

	if err := f.writeDeadlined(conn, buildHandshake(ih, peerID)); err != nil {
		return classifyIOError(err)
	}
	reply, err := f.readExact(conn, 68)
	if err != nil {
		return classifyIOError(err)
	}
	if !validateHandshakeReply(reply, ih) {
		return StatusHandshakeFail
	}

	extMsg, err := buildExtHandshakeMessage()
	if err != nil {
		return StatusException
	}
	if err := f.writeDeadlined(conn, extMsg); err != nil {
		return classifyIOError(err)
	}

	lp, err := f.readExact(conn, 4)
	if err != nil {
		return classifyIOError(err)
	}
	msgLen := beUint32(lp)
	if msgLen == 0 || msgLen > uint32(f.config.MaxExtHandshakeSize) {
		return StatusExtFail
	}
	body, err := f.readExact(conn, int(msgLen))
	if err != nil {
		return classifyIOError(err)
	}

	utMetadataID, metadataSize, ok := parseExtHandshake(append(lp, body...))
	if !ok {
		return StatusExtFail
	}

	pieces := (metadataSize + f.config.PieceSize - 1) / f.config.PieceSize
	if pieces <= 0 || pieces > f.config.MaxPieces {
		return StatusBadPieces
	}

	parts := make([][]byte, 0, pieces)
	for piece := 0; piece < pieces; piece++ {
		req, err := buildMetadataRequestMessage(utMetadataID, piece)
		if err != nil {
			continue
		}
		if err := f.writeDeadlined(conn, req); err != nil {
			continue
		}
		blob := f.recvUntilIdle(conn)
		if len(blob) == 0 {
			continue
		}
		payload, ok := extractPiecePayload(blob, piece)
		if !ok {
			continue
		}
		parts = append(parts, payload)
	}
	if len(parts) == 0 {
		return StatusNoPieces
	}

	var joined []byte
	for _, p := range parts {
		joined = append(joined, p...)
	}

	sum := sha1.Sum(joined)
	if hex.EncodeToString(sum[:]) != ih.Hex() {
		return StatusSHA1Mismatch
	}

	infoVal, err := bencode.Unmarshal(joined)
	if err != nil {
		return StatusSHA1Mismatch
	}

	info := decodeInfo(ih, infoVal, addr)
	torrentBytes := reconstructTorrentBytes(joined)

	if err := sink.SaveInfo(info, torrentBytes, addr); err != nil {
		f.logger.Warnw("save metadata failed", "infohash", ih.HexUpper(), "addr", addr, "error", err)
		return StatusException
	}
	return StatusOK
}

func (f *Fetcher) writeDeadlined(conn net.Conn, b []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(f.config.IOTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(b)
	return err
}

// readExact reads up to n bytes from conn. A clean EOF is treated as a soft
// truncation: it returns whatever bytes were read so far with a nil error,
// letting the caller's own structural validation (handshake/ext-handshake
// shape checks) decide the resulting Status, mirroring how the original
// implementation's recv loop simply stops on an empty recv() rather than
// raising. A timeout or any other I/O error is hard: it propagates so Fetch
// can classify it directly as StatusTimeout/StatusOSError.
func (f *Fetcher) readExact(conn net.Conn, n int) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(f.config.IOTimeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	total := 0
	for total < n {
		nr, err := conn.Read(buf[total:])
		total += nr
		if err != nil {
			if err == io.EOF {
				return buf[:total], nil
			}
			return nil, err
		}
	}
	return buf, nil
}

// recvUntilIdle accumulates bytes from conn until either the configured
// IOTimeout elapses since the last byte received (with some data already
// present), or 2*IOTimeout elapses since the call began regardless. Peers
// stream a piece's bytes without any length-prefix framing we can rely on,
// so idle-detection is the only practical way to know a piece response is
// complete.
func (f *Fetcher) recvUntilIdle(conn net.Conn) []byte {
	var total []byte
	begin := time.Now()
	last := begin
	buf := make([]byte, 4096)

	for {
		now := time.Now()
		if len(total) > 0 && now.Sub(last) > f.config.IOTimeout {
			break
		}
		if now.Sub(begin) > 2*f.config.IOTimeout {
			break
		}
		conn.SetReadDeadline(now.Add(50 * time.Millisecond))
		nr, err := conn.Read(buf)
		if nr > 0 {
			total = append(total, buf[:nr]...)
			last = time.Now()
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			break
		}
	}
	return total
}

func classifyIOError(err error) Status {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return StatusTimeout
	}
	return StatusOSError
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
