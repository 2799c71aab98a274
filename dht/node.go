// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package dht

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/peerstore"
)

// InfohashSink receives (infohash, peer-address) pairs harvested from
// get_peers/announce_peer traffic. The dispatcher implements this; the
// node holds no other reference to it.
type InfohashSink interface {
	LogInfohash(h core.InfoHash, addr core.PeerAddress)
}

// statusSink is the subset of statuslog.Sink the node uses for its
// periodic alive line. Declared here rather than importing statuslog, per
// the same accept-interfaces idiom as InfohashSink.
type statusSink interface {
	Status(args ...interface{})
}

// Node is a single passive DHT participant: it binds one UDP socket,
// answers enough of the Kademlia/KRPC protocol to look legitimate, and
// otherwise exists to be routed unsolicited announce_peer/get_peers
// traffic via the neighbor-id trick.
type Node struct {
	config Config
	clk    clock.Clock
	logger *zap.SugaredLogger
	stats  tally.Scope
	sink   InfohashSink
	status statusSink

	selfID core.NodeID
	conn   *net.UDPConn

	bootstrapStore *peerstore.Store

	queue *nodeQueue

	rx, tx, qAnnounce, qGetPeers atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Node bound to config.IP:config.Port. The socket is not
// opened until Start is called.
func New(config Config, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope, sink InfohashSink) (*Node, error) {
	config.applyDefaults()

	store, err := peerstore.NewStore(config.BootstrapStore, clk)
	if err != nil {
		return nil, fmt.Errorf("bootstrap store: %s", err)
	}

	selfID, err := core.NewRandomNodeID()
	if err != nil {
		return nil, fmt.Errorf("generate node id: %s", err)
	}

	return &Node{
		config:         config,
		clk:            clk,
		logger:         logger,
		stats:          stats.Tagged(map[string]string{"module": "dht"}),
		sink:           sink,
		selfID:         selfID,
		bootstrapStore: store,
		queue:          newNodeQueue(config.MaxNodeQueueSize),
		done:           make(chan struct{}),
	}, nil
}

// SetStatusSink attaches a user-facing status sink. It is optional and
// nil-safe: with no sink attached, the node's alive line is only ever
// written to the structured logger. Must be called before Start to avoid
// a race with the rejoin loop.
func (n *Node) SetStatusSink(sink statusSink) {
	n.status = sink
}

// Start binds the UDP socket and launches the receive loop, the
// re-bootstrap timer, and the node-drainer.
func (n *Node) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(n.config.IP), Port: n.config.Port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("listen udp: %s", err)
	}
	n.conn = conn

	n.logger.Infof("DHT node listening on %s as %s", addr, n.selfID)

	n.wg.Add(3)
	go n.recvLoop()
	go n.rejoinLoop()
	go n.drainLoop()

	return nil
}

// Stop closes the socket and waits for all loops to exit.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.done)
		if n.conn != nil {
			n.conn.Close()
		}
		n.wg.Wait()
	})
}

func (n *Node) recvLoop() {
	defer n.wg.Done()

	buf := make([]byte, n.config.RecvBufferSize)
	for {
		select {
		case <-n.done:
			return
		default:
		}

		n.conn.SetReadDeadline(n.clk.Now().Add(100 * time.Millisecond))
		nr, raddr, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-n.done:
				return
			default:
				continue
			}
		}
		n.rx.Inc()

		addr, err := core.NewPeerAddress(raddr.IP.String(), raddr.Port)
		if err != nil {
			continue
		}

		msg, err := decodeInboundMessage(buf[:nr])
		if err != nil {
			continue
		}
		n.handleMessage(msg, addr)
	}
}

func (n *Node) handleMessage(msg *inboundMessage, addr core.PeerAddress) {
	switch msg.y {
	case "r":
		if msg.r == nil {
			return
		}
		if _, ok := msg.r.Get("nodes"); ok {
			n.onFindNodeResponse(msg, addr)
		}
	case "q":
		switch msg.q {
		case "get_peers":
			n.stats.Counter("get_peers_queries").Inc(1)
			n.qGetPeers.Inc()
			n.onGetPeers(msg, addr)
		case "announce_peer":
			n.stats.Counter("announce_peer_queries").Inc(1)
			n.qAnnounce.Inc()
			n.onAnnouncePeer(msg, addr)
		default:
			n.replyServerError(msg, addr)
		}
	}
}

func (n *Node) onFindNodeResponse(msg *inboundMessage, addr core.PeerAddress) {
	raw, _ := msg.r.GetBytes([]byte("nodes"))
	b, _ := raw.RawBytes()

	nodes := core.DecodeCompactNodes(b, n.config.IP)
	if len(nodes) == 0 {
		return
	}
	n.bootstrapStore.MarkOk(addr)
	for _, kn := range nodes {
		n.queue.push(kn)
	}
}

func (n *Node) onGetPeers(msg *inboundMessage, addr core.PeerAddress) {
	if msg.a == nil {
		return
	}
	rawHash, ok := msg.a.Get("info_hash")
	if !ok {
		return
	}
	hashBytes, ok := rawHash.RawBytes()
	if !ok || len(hashBytes) != 20 {
		return
	}
	ih, err := core.NewInfoHashFromRawBytes(hashBytes)
	if err != nil {
		return
	}

	token := ih.Bytes()[:n.config.TokenLength]
	replyID := core.NeighborOfInfoHash(ih, n.selfID, n.config.TokenLength)

	reply, err := encodeGetPeersReply(msg.tid, replyID, token)
	if err != nil {
		return
	}
	n.send(reply, addr)
}

func (n *Node) onAnnouncePeer(msg *inboundMessage, addr core.PeerAddress) {
	defer n.replyOk(msg, addr)

	if msg.a == nil {
		return
	}
	rawHash, ok := msg.a.Get("info_hash")
	if !ok {
		return
	}
	hashBytes, ok := rawHash.RawBytes()
	if !ok || len(hashBytes) != 20 {
		return
	}
	ih, err := core.NewInfoHashFromRawBytes(hashBytes)
	if err != nil {
		return
	}

	rawToken, ok := msg.a.Get("token")
	if !ok {
		return
	}
	token, _ := rawToken.RawBytes()
	expected := ih.Bytes()[:n.config.TokenLength]
	if string(token) != string(expected) {
		return
	}

	port := addr.Port
	if impliedV, ok := msg.a.GetInt("implied_port"); ok && impliedV != 0 {
		port = addr.Port
	} else if declaredPort, ok := msg.a.GetInt("port"); ok {
		if declaredPort < 1 || declaredPort > 65535 {
			return
		}
		port = int(declaredPort)
	}

	candidates := []int{port}
	if addr.Port != port {
		candidates = append(candidates, addr.Port)
	}
	for _, p := range candidates {
		peerAddr, err := core.NewPeerAddress(addr.IP, p)
		if err != nil {
			continue
		}
		n.sink.LogInfohash(ih, peerAddr)
	}
}

func (n *Node) replyOk(msg *inboundMessage, addr core.PeerAddress) {
	if msg.a == nil {
		return
	}
	rawID, ok := msg.a.Get("id")
	if !ok {
		return
	}
	idBytes, ok := rawID.RawBytes()
	if !ok {
		return
	}
	peerID, err := core.NewNodeIDFromBytes(idBytes)
	if err != nil {
		return
	}
	reply, err := encodeOkReply(msg.tid, core.Neighbor(peerID, n.selfID, n.config.TokenLength))
	if err != nil {
		return
	}
	n.send(reply, addr)
}

func (n *Node) replyServerError(msg *inboundMessage, addr core.PeerAddress) {
	reply, err := encodeServerErrorReply(msg.tid)
	if err != nil {
		return
	}
	n.send(reply, addr)
}

func (n *Node) send(payload []byte, addr core.PeerAddress) {
	udpAddr := &net.UDPAddr{IP: net.ParseIP(addr.IP), Port: addr.Port}
	if _, err := n.conn.WriteToUDP(payload, udpAddr); err != nil {
		return
	}
	n.tx.Inc()
}

func (n *Node) sendFindNode(addr core.PeerAddress, peerID *core.NodeID) error {
	tid, err := newTransactionID(n.config.TIDLength)
	if err != nil {
		return err
	}
	target, err := core.NewRandomNodeID()
	if err != nil {
		return err
	}
	id := n.selfID
	if peerID != nil {
		id = core.Neighbor(*peerID, n.selfID, n.config.TokenLength)
	}
	payload, err := encodeFindNodeQuery(tid, id, target)
	if err != nil {
		return err
	}
	n.send(payload, addr)
	return nil
}

func (n *Node) rejoinLoop() {
	defer n.wg.Done()

	ticker := n.clk.Ticker(n.config.RejoinInterval)
	defer ticker.Stop()

	n.join()
	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			n.logger.Infow("dht status",
				"rx", n.rx.Load(), "tx", n.tx.Load(), "nodes", n.queue.len(),
				"announce", n.qAnnounce.Load(), "get_peers", n.qGetPeers.Load())
			n.stats.Gauge("node_queue_size").Update(float64(n.queue.len()))
			if n.status != nil {
				n.status.Status("dht", "rx", n.rx.Load(), "tx", n.tx.Load(),
					"nodes", n.queue.len())
			}
			if n.queue.len() == 0 {
				n.join()
			}
		}
	}
}

func (n *Node) join() {
	for _, h := range defaultBootstrapHosts {
		addrs, err := net.LookupHost(h.Host)
		if err != nil || len(addrs) == 0 {
			continue
		}
		addr, err := core.NewPeerAddress(addrs[0], h.Port)
		if err != nil {
			continue
		}
		n.sendFindNode(addr, nil)
	}
	for _, addr := range n.bootstrapStore.Sample(n.config.BootstrapExtraK) {
		n.sendFindNode(addr, nil)
	}
}

func (n *Node) drainLoop() {
	defer n.wg.Done()

	// The pacing policy is expressed as a rate.Limiter (one pop every
	// 1/max_node_qsize seconds) even though the actual wait uses the
	// injected clock, so drain pacing stays deterministic under test.
	limiter := rate.Every(time.Second / time.Duration(n.config.MaxNodeQueueSize))
	interval := time.Duration(float64(time.Second) / float64(rate.NewLimiter(limiter, 1).Limit()))
	ticker := n.clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			kn, ok := n.queue.pop()
			if !ok {
				continue
			}
			id := kn.ID
			n.sendFindNode(kn.Addr, &id)
		}
	}
}
