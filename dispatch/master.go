package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/metadata"
	"github.com/giuseppechecchia/L-Spider/peerstore"
)

// metadataFetcher is the subset of *metadata.Fetcher the dispatcher
// drives. Declared here, at the point of consumption, per the same
// accept-interfaces idiom as dht.InfohashSink and metadata.StorageSink.
type metadataFetcher interface {
	Fetch(addr core.PeerAddress, ih core.InfoHash, sink metadata.StorageSink) metadata.Status
}

// statusSink is the subset of statuslog.Sink the dispatcher uses for its
// heartbeat line. Declared here, not imported from statuslog, per the
// same accept-interfaces idiom as metadataFetcher.
type statusSink interface {
	Status(args ...interface{})
}

type failState struct {
	count        int
	windowExpiry time.Time
}

// Master mediates between the DHT node's harvested (infohash, address)
// observations and the metadata fetcher: it dedups, fans work out to a
// bounded pool of concurrent fetches, quarantines unreliable peers, and
// amplifies each new infohash against previously known-good metadata
// peers.
type Master struct {
	config  Config
	clk     clock.Clock
	logger  *zap.SugaredLogger
	stats   tally.Scope
	fetcher metadataFetcher
	sink    metadata.StorageSink
	status  statusSink

	metadataStore *peerstore.Store

	queue *workQueue
	sem   *semaphore.Weighted

	seenMu sync.Mutex
	seen   map[string]struct{}

	badMu sync.Mutex
	bad   map[core.PeerAddress]time.Time

	failMu sync.Mutex
	fail   map[core.PeerAddress]*failState

	okCount      atomic.Uint64
	failCount    atomic.Uint64
	activeWorker atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a ready Master. sink receives every successfully verified
// torrent via the metadata fetcher.
func New(
	config Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
	stats tally.Scope,
	fetcher metadataFetcher,
	sink metadata.StorageSink,
) (*Master, error) {
	config.applyDefaults()

	metadataStore, err := peerstore.NewStore(config.MetadataPeerStore, clk)
	if err != nil {
		return nil, fmt.Errorf("new metadata peer store: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Master{
		config:        config,
		clk:           clk,
		logger:        logger,
		stats:         stats.Tagged(map[string]string{"module": "dispatch"}),
		fetcher:       fetcher,
		sink:          sink,
		metadataStore: metadataStore,
		queue:         newWorkQueue(),
		sem:           semaphore.NewWeighted(int64(config.MaxWorkers)),
		seen:          make(map[string]struct{}),
		bad:           make(map[core.PeerAddress]time.Time),
		fail:          make(map[core.PeerAddress]*failState),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// SetStatusSink attaches a user-facing status sink. It is optional and
// nil-safe: with no sink attached, the heartbeat is only ever written to
// the structured logger. Must be called before Start to avoid a race
// with the heartbeat loop.
func (m *Master) SetStatusSink(sink statusSink) {
	m.status = sink
}

// Start launches the dispatch loop and the heartbeat logger.
func (m *Master) Start() {
	m.wg.Add(2)
	go m.dispatchLoop()
	go m.heartbeatLoop()
}

// Stop halts the dispatch loop. Workers already running are abandoned to
// complete on their own, mirroring the lack of a clean drain on shutdown.
func (m *Master) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.queue.close()
	})
	m.wg.Wait()
}

// LogInfohash implements dht.InfohashSink. It is safe to call from the
// DHT's UDP receive goroutine: all it does is a couple of map operations
// under mutex and a non-blocking queue push.
func (m *Master) LogInfohash(ih core.InfoHash, addr core.PeerAddress) {
	if !m.enqueueOnce(ih, addr) {
		return
	}
	m.amplify(ih, addr)
}

func (m *Master) enqueueOnce(ih core.InfoHash, addr core.PeerAddress) bool {
	if addr.Zero() {
		return false
	}
	if m.isBad(addr) {
		return false
	}

	key := fmt.Sprintf("%s|%s", ih.HexUpper(), addr)

	m.seenMu.Lock()
	if _, ok := m.seen[key]; ok {
		m.seenMu.Unlock()
		return false
	}
	m.seen[key] = struct{}{}
	if len(m.seen) > m.config.SeenCap {
		m.seen = make(map[string]struct{})
	}
	m.seenMu.Unlock()

	m.logger.Debugw("observed infohash", "infohash", ih.HexUpper(), "addr", addr)
	m.queue.push(job{ih: ih, addr: addr})
	return true
}

// amplify enqueues the same infohash against up to HintK previously
// known-good metadata peers, skipping the peer it was originally observed
// from. An infohash seen from one peer is often held by others we already
// trust, so this is the system's main speed-up trick.
func (m *Master) amplify(ih core.InfoHash, addr core.PeerAddress) {
	for _, hint := range m.metadataStore.Sample(m.config.HintK) {
		if hint == addr {
			continue
		}
		m.enqueueOnce(ih, hint)
	}
}

func (m *Master) dispatchLoop() {
	defer m.wg.Done()
	for {
		j, ok := m.queue.pop()
		if !ok {
			return
		}
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			return
		}
		m.wg.Add(1)
		go m.worker(j)
	}
}

func (m *Master) worker(j job) {
	m.activeWorker.Inc()
	defer m.activeWorker.Dec()
	defer m.wg.Done()
	defer m.sem.Release(1)

	status := m.fetcher.Fetch(j.addr, j.ih, m.sink)
	m.recordResult(j.addr, status)
}

func (m *Master) recordResult(addr core.PeerAddress, status metadata.Status) {
	if status.OK() {
		m.okCount.Inc()
		m.metadataStore.MarkOk(addr)
		return
	}
	m.failCount.Inc()
	if status == metadata.StatusTimeout || status == metadata.StatusOSError {
		m.recordFailure(addr)
	}
}

// recordFailure updates addr's sliding-window failure count, quarantining
// it once FailThreshold qualifying failures land inside FailWindow.
func (m *Master) recordFailure(addr core.PeerAddress) {
	now := m.clk.Now()

	m.failMu.Lock()
	fs, ok := m.fail[addr]
	if !ok || now.After(fs.windowExpiry) {
		fs = &failState{windowExpiry: now.Add(m.config.FailWindow)}
		m.fail[addr] = fs
	}
	fs.count++
	crossed := fs.count >= m.config.FailThreshold
	if crossed {
		delete(m.fail, addr)
	}
	m.failMu.Unlock()

	if crossed {
		m.badMu.Lock()
		m.bad[addr] = now.Add(m.config.BadTTL)
		m.badMu.Unlock()
	}
}

// isBad reports whether addr is currently quarantined, lazily evicting
// its entry once expired.
func (m *Master) isBad(addr core.PeerAddress) bool {
	now := m.clk.Now()

	m.badMu.Lock()
	defer m.badMu.Unlock()

	expiry, ok := m.bad[addr]
	if !ok {
		return false
	}
	if now.After(expiry) {
		delete(m.bad, addr)
		return false
	}
	return true
}

func (m *Master) heartbeatLoop() {
	defer m.wg.Done()

	ticker := m.clk.Ticker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.logHeartbeat()
		}
	}
}

func (m *Master) logHeartbeat() {
	m.seenMu.Lock()
	seenLen := len(m.seen)
	m.seenMu.Unlock()

	m.badMu.Lock()
	badLen := len(m.bad)
	m.badMu.Unlock()

	ok := m.okCount.Load()
	fail := m.failCount.Load()
	active := m.activeWorker.Load()

	m.logger.Infow("dispatch heartbeat",
		"queue_depth", m.queue.len(),
		"thread_count", active,
		"bad", badLen,
		"seen", seenLen,
		"ok", ok,
		"fail", fail,
	)
	m.stats.Gauge("queue_depth").Update(float64(m.queue.len()))
	m.stats.Gauge("active_workers").Update(float64(active))
	m.stats.Gauge("bad_peers").Update(float64(badLen))
	m.stats.Gauge("seen").Update(float64(seenLen))
	m.stats.Gauge("ok_count").Update(float64(ok))
	m.stats.Gauge("fail_count").Update(float64(fail))

	if m.status != nil {
		m.status.Status("dispatch", "queue", m.queue.len(), "threads", active,
			"bad", badLen, "seen", seenLen, "ok", ok, "fail", fail)
	}
}
