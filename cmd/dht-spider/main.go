// Command dht-spider joins the public BitTorrent DHT as a passive
// infohash harvester: it answers enough of the Kademlia/KRPC protocol to
// attract announce_peer/get_peers traffic, then opportunistically fetches
// and persists the metadata for every infohash it observes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin"
	"github.com/andres-erbsen/clock"
	"golang.org/x/sync/errgroup"

	"github.com/giuseppechecchia/L-Spider/dht"
	"github.com/giuseppechecchia/L-Spider/dispatch"
	"github.com/giuseppechecchia/L-Spider/metadata"
	"github.com/giuseppechecchia/L-Spider/metrics"
	"github.com/giuseppechecchia/L-Spider/statuslog"
	"github.com/giuseppechecchia/L-Spider/torrentfile"
	"github.com/giuseppechecchia/L-Spider/utils/log"
)

var (
	app = kingpin.New("dht-spider", "Passive BitTorrent DHT infohash harvester.")

	printOnly = app.Flag("print-only", "Print discoveries instead of writing .torrent files or the text log.").
			Short('s').Bool()
	logPath = app.Flag("log", "Path to the text log of discovered infohashes.").
			Short('p').Default("hash.log").String()
	maxWorkers = app.Flag("workers", "Maximum concurrent metadata downloads.").
			Short('t').Default("100").Int()
	writeTorrents = app.Flag("write-torrents", "Write .torrent files to BT/.").
			Short('b').Default("true").Bool()
	metricsAddr = app.Flag("metrics-addr", "Listen address for /metrics and /healthz.").
			Default("0.0.0.0:7282").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := log.Configure(log.Config{}); err != nil {
		panic(err)
	}
	logger := log.With()

	clk := clock.New()

	scope, metricsServer, err := metrics.New(metrics.Config{Addr: *metricsAddr})
	if err != nil {
		logger.Fatalf("new metrics server: %s", err)
	}
	defer metricsServer.Close()

	writer, err := torrentfile.NewWriter(torrentfile.Config{
		LogPath:       *logPath,
		WriteTorrents: *writeTorrents,
		PrintOnly:     *printOnly,
	})
	if err != nil {
		logger.Fatalf("new torrentfile writer: %s", err)
	}
	defer writer.Close()

	fetcher := metadata.NewFetcher(metadata.Config{}, logger, scope)

	dispatchConfig := dispatch.Config{MaxWorkers: *maxWorkers}
	master, err := dispatch.New(dispatchConfig, clk, logger, scope, fetcher, writer)
	if err != nil {
		logger.Fatalf("new dispatch master: %s", err)
	}

	node, err := dht.New(dht.Config{}, clk, logger, scope, master)
	if err != nil {
		logger.Fatalf("new dht node: %s", err)
	}

	var sink statuslog.Sink
	if *printOnly {
		sink = statuslog.NewPlain(os.Stdout)
	} else {
		term := statuslog.NewTerminal(os.Stdout, 24)
		defer term.Close()
		sink = term
	}
	master.SetStatusSink(sink)
	node.SetStatusSink(sink)
	writer.SetStatusSink(sink)

	master.Start()
	defer master.Stop()

	if err := node.Start(); err != nil {
		logger.Fatalf("start dht node: %s", err)
	}
	defer node.Stop()

	logger.Infow("dht-spider started", "metrics_addr", *metricsAddr, "log_path", *logPath)

	// An errgroup supervises the metrics server and the shutdown signal
	// wait together: whichever fires first (the server dying
	// unexpectedly, or SIGINT/SIGTERM) cancels ctx, which the other
	// goroutine observes and returns on -- so a process-level Ctrl-C and
	// an unexpected server exit both tear everything down the same way.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	metricsErrc := metricsServer.Start()

	eg.Go(func() error {
		select {
		case err, ok := <-metricsErrc:
			if ok {
				return err
			}
		case <-ctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigc:
		case <-ctx.Done():
		}
		cancel()
		return nil
	})

	if err := eg.Wait(); err != nil {
		logger.Errorf("metrics server: %s", err)
	}

	logger.Info("shutting down")
}
