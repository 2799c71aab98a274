package metadata

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/utils/log"
)

type fakeSink struct {
	infos []Info
	raw   [][]byte
}

func (f *fakeSink) SaveInfo(info Info, torrentBytes []byte, addr core.PeerAddress) error {
	f.infos = append(f.infos, info)
	f.raw = append(f.raw, torrentBytes)
	return nil
}

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	logger, err := log.New(log.Config{Disable: true}, nil)
	require.NoError(t, err)
	return NewFetcher(Config{
		DialTimeout: time.Second,
		IOTimeout:   time.Second,
		DialRetries: 0,
	}, logger, tally.NoopScope)
}

// listenForOneConn opens a loopback TCP listener standing in for a remote
// BT peer and returns its address plus a channel that delivers the first
// accepted connection, accepted on its own goroutine.
func listenForOneConn(t *testing.T) (core.PeerAddress, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	connc := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			connc <- c
		}
		close(connc)
	}()

	tcpAddr := ln.Addr().(*net.TCPAddr)
	addr, err := core.NewPeerAddress("127.0.0.1", tcpAddr.Port)
	require.NoError(t, err)
	return addr, connc
}

func acceptConn(t *testing.T, connc <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case c := <-connc:
		require.NotNil(t, c)
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetcher to dial")
		return nil
	}
}

func testInfoBencode(t *testing.T, name string) (infoBytes []byte, ih core.InfoHash) {
	t.Helper()
	d := bencode.NewDict()
	d.Set("name", bencode.String(name))
	d.Set("piece length", bencode.Int(16384))
	d.Set("pieces", bencode.String("01234567890123456789"))
	d.Set("length", bencode.Int(1234))

	b, err := bencode.Marshal(bencode.DictValue(d))
	require.NoError(t, err)
	return b, core.NewInfoHashFromBencodedInfo(b)
}

func writeLengthPrefixed(t *testing.T, conn net.Conn, body []byte) {
	t.Helper()
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	_, err := conn.Write(out)
	require.NoError(t, err)
}

func extHandshakePayload(t *testing.T, metadataSize int) []byte {
	t.Helper()
	m := bencode.NewDict()
	m.Set("ut_metadata", bencode.Int(1))
	d := bencode.NewDict()
	d.Set("m", bencode.DictValue(m))
	d.Set("metadata_size", bencode.Int(int64(metadataSize)))

	payload, err := bencode.Marshal(bencode.DictValue(d))
	require.NoError(t, err)
	return append([]byte{btMsgID, extHandshakeID}, payload...)
}

func piecePayload(t *testing.T, piece int, data []byte) []byte {
	t.Helper()
	d := bencode.NewDict()
	d.Set("msg_type", bencode.Int(1))
	d.Set("piece", bencode.Int(int64(piece)))
	d.Set("total_size", bencode.Int(int64(len(data))))

	header, err := bencode.Marshal(bencode.DictValue(d))
	require.NoError(t, err)
	body := append([]byte{btMsgID, 1}, header...)
	body = append(body, data...)
	return body
}

// servePeer drives conn through a full, successful BEP-9 exchange for the
// given info-dict bytes, replying to whatever handshake/requests the
// Fetcher sends.
func servePeer(t *testing.T, conn net.Conn, ih core.InfoHash, infoBytes []byte) {
	t.Helper()
	defer conn.Close()

	hs := make([]byte, 68)
	_, err := readFull(conn, hs)
	require.NoError(t, err)

	var peerID [20]byte
	conn.Write(buildHandshake(ih, peerID))

	writeLengthPrefixed(t, conn, extHandshakePayload(t, len(infoBytes)))

	lp := make([]byte, 4)
	_, err = readFull(conn, lp)
	require.NoError(t, err)
	msgLen := binary.BigEndian.Uint32(lp)
	body := make([]byte, msgLen)
	_, err = readFull(conn, body)
	require.NoError(t, err)

	// Single piece: the test info dict is well under 16KiB.
	req := make([]byte, 4)
	_, err = readFull(conn, req)
	require.NoError(t, err)
	reqLen := binary.BigEndian.Uint32(req)
	reqBody := make([]byte, reqLen)
	_, err = readFull(conn, reqBody)
	require.NoError(t, err)

	writeLengthPrefixed(t, conn, piecePayload(t, 0, infoBytes))
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestFetchSucceeds(t *testing.T) {
	infoBytes, ih := testInfoBencode(t, "test.iso")
	addr, connc := listenForOneConn(t)

	go servePeer(t, acceptConn(t, connc), ih, infoBytes)

	sink := &fakeSink{}
	status := testFetcher(t).Fetch(addr, ih, sink)

	require.Equal(t, StatusOK, status)
	require.Len(t, sink.infos, 1)
	require.Equal(t, "test.iso", sink.infos[0].Name)
}

func TestFetchHandshakeFail(t *testing.T) {
	_, ih := testInfoBencode(t, "irrelevant")
	addr, connc := listenForOneConn(t)

	go func() {
		conn := acceptConn(t, connc)
		defer conn.Close()
		hs := make([]byte, 68)
		readFull(conn, hs)
		conn.Write([]byte("not a handshake"))
	}()

	status := testFetcher(t).Fetch(addr, ih, &fakeSink{})
	require.Equal(t, StatusHandshakeFail, status)
}

func TestFetchExtFail(t *testing.T) {
	_, ih := testInfoBencode(t, "irrelevant")
	addr, connc := listenForOneConn(t)

	go func() {
		conn := acceptConn(t, connc)
		defer conn.Close()
		hs := make([]byte, 68)
		readFull(conn, hs)
		var peerID [20]byte
		conn.Write(buildHandshake(ih, peerID))
		// No ut_metadata in m, and no metadata_size: malformed ext-handshake.
		d := bencode.NewDict()
		d.Set("m", bencode.DictValue(bencode.NewDict()))
		payload, _ := bencode.Marshal(bencode.DictValue(d))
		body := append([]byte{btMsgID, extHandshakeID}, payload...)
		writeLengthPrefixed(t, conn, body)
	}()

	status := testFetcher(t).Fetch(addr, ih, &fakeSink{})
	require.Equal(t, StatusExtFail, status)
}

func TestFetchNoPieces(t *testing.T) {
	_, ih := testInfoBencode(t, "irrelevant")
	addr, connc := listenForOneConn(t)

	go func() {
		conn := acceptConn(t, connc)
		defer conn.Close()
		hs := make([]byte, 68)
		readFull(conn, hs)
		var peerID [20]byte
		conn.Write(buildHandshake(ih, peerID))
		writeLengthPrefixed(t, conn, extHandshakePayload(t, 100))

		lp := make([]byte, 4)
		readFull(conn, lp)
		msgLen := binary.BigEndian.Uint32(lp)
		body := make([]byte, msgLen)
		readFull(conn, body)

		// Never answers the piece request; conn closes once this
		// goroutine returns, starving the fetcher's idle-drain.
	}()

	status := testFetcher(t).Fetch(addr, ih, &fakeSink{})
	require.Equal(t, StatusNoPieces, status)
}

func TestFetchSHA1Mismatch(t *testing.T) {
	infoBytes, ih := testInfoBencode(t, "test.iso")
	// Corrupt a byte so the hash the fetcher computes won't match ih.
	tampered := append([]byte(nil), infoBytes...)
	tampered[0] ^= 0xff

	addr, connc := listenForOneConn(t)
	go servePeer(t, acceptConn(t, connc), ih, tampered)

	status := testFetcher(t).Fetch(addr, ih, &fakeSink{})
	require.Equal(t, StatusSHA1Mismatch, status)
}

func TestFetchOSErrorOnRefusedConnection(t *testing.T) {
	// Nothing listens on this port.
	addr, err := core.NewPeerAddress("127.0.0.1", 1)
	require.NoError(t, err)
	_, ih := testInfoBencode(t, "irrelevant")

	status := testFetcher(t).Fetch(addr, ih, &fakeSink{})
	require.Equal(t, StatusOSError, status)
}

func TestBuildHandshakeRoundTrips(t *testing.T) {
	ih, err := core.NewInfoHashFromRawBytes([]byte("01234567890123456789"))
	require.NoError(t, err)
	var peerID [20]byte
	copy(peerID[:], "abcdefghij0123456789")

	packet := buildHandshake(ih, peerID)
	require.Len(t, packet, 68)
	require.True(t, validateHandshakeReply(packet, ih))
}

func TestValidateHandshakeReplyRejectsWrongInfohash(t *testing.T) {
	ih, err := core.NewInfoHashFromRawBytes([]byte("01234567890123456789"))
	require.NoError(t, err)
	other, err := core.NewInfoHashFromRawBytes([]byte("zzzzzzzzzzzzzzzzzzzz"))
	require.NoError(t, err)
	var peerID [20]byte

	packet := buildHandshake(ih, peerID)
	require.False(t, validateHandshakeReply(packet, other))
}

func TestParseExtHandshakeRejectsZeroMetadataSize(t *testing.T) {
	body := extHandshakePayload(t, 0)
	packet := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(packet, uint32(len(body)))
	copy(packet[4:], body)

	_, _, ok := parseExtHandshake(packet)
	require.False(t, ok)
}

func TestExtractPiecePayloadByScan(t *testing.T) {
	data := []byte("hello metadata")
	blob := piecePayload(t, 3, data)

	payload, ok := extractPiecePayload(blob, 3)
	require.True(t, ok)
	require.Equal(t, data, payload)
}

func TestExtractPiecePayloadByScanRejectsWrongPieceIndex(t *testing.T) {
	// Exercises extractPiecePayloadByScan directly: the combined
	// extractPiecePayload would otherwise fall through to the marker
	// strategy, which does not check the piece index and would accept
	// this blob.
	data := []byte("hello metadata")
	blob := piecePayload(t, 3, data)

	_, ok := extractPiecePayloadByScan(blob, 4)
	require.False(t, ok)
}

func TestExtractPiecePayloadFallsBackToMarker(t *testing.T) {
	// The only 'd' byte sits inside "payload" and does not start a valid
	// dict, so the scan strategy fails and the marker fallback takes over,
	// splitting on the first "ee".
	blob := append([]byte("xxxxxxxxxxee"), []byte("payload-bytes")...)

	payload, ok := extractPiecePayload(blob, 0)
	require.True(t, ok)
	require.Equal(t, []byte("payload-bytes"), payload)
}
