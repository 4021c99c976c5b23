package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/you/fanharvest/internal/config"
	"github.com/you/fanharvest/internal/extract"
	"github.com/you/fanharvest/internal/harvester"
	"github.com/you/fanharvest/internal/httpapi"
	"github.com/you/fanharvest/internal/sink"
	"github.com/you/fanharvest/internal/surface"
	"github.com/you/fanharvest/internal/version"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag bool
		dbPath      string
		apiURL      string
		apiToken    string
		bridgeURL   string
		surfaceID   string
		pollMS      int
		sessionFile string
		httpAddr    string
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&dbPath, "sqlite", "", "Path to SQLite database file")
	flag.StringVar(&apiURL, "api-url", "", "Agency REST backend base URL")
	flag.StringVar(&apiToken, "api-token", "", "Bearer token for the REST backend")
	flag.StringVar(&bridgeURL, "bridge-url", "", "Websocket URL of the webview host bridge")
	flag.StringVar(&surfaceID, "surface", "", "Rendering surface id to harvest")
	flag.IntVar(&pollMS, "poll-interval-ms", 0, "Extraction pass interval in milliseconds")
	flag.StringVar(&sessionFile, "session-file", "", "Path to the session token file to watch")
	flag.StringVar(&httpAddr, "http-addr", "", "Read API address (e.g., :8765)")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"harvester version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()

	addSink := func(name string) {
		if !cfg.HasSink(name) {
			cfg.Sinks = append(cfg.Sinks, name)
		}
	}

	if overrides["sqlite"] {
		cfg.Sink.SQLite.Path = strings.TrimSpace(dbPath)
		addSink("sqlite")
	}
	if overrides["api-url"] {
		cfg.Sink.API.BaseURL = strings.TrimSpace(apiURL)
		addSink("api")
	}
	if overrides["api-token"] {
		cfg.Sink.API.Token = strings.TrimSpace(apiToken)
	}
	if overrides["bridge-url"] {
		cfg.Bridge.URL = strings.TrimSpace(bridgeURL)
	}
	if overrides["surface"] {
		cfg.Bridge.SurfaceID = strings.TrimSpace(surfaceID)
	}
	if overrides["poll-interval-ms"] && pollMS > 0 {
		cfg.Harvest.PollIntervalMS = pollMS
	}
	if overrides["session-file"] {
		cfg.Harvest.SessionFile = strings.TrimSpace(sessionFile)
	}
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}

	slog.Info("starting harvester", "config", fmt.Sprintf("%+v", cfg.Summary()))

	if cfg.Bridge.URL == "" {
		log.Fatal("bridge URL is required (FH_BRIDGE_URL or -bridge-url)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge, err := surface.Dial(ctx, cfg.Bridge.URL, slog.Default())
	if err != nil {
		log.Fatalf("dial bridge: %v", err)
	}
	defer bridge.Close()

	store, err := sink.OpenSQLite(cfg.Sink.SQLite.Path)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	var (
		writer      sink.Writer           = store
		vaults      sink.VaultWriter      = store
		subscribers sink.SubscriberWriter = store
	)
	if cfg.HasSink("api") && cfg.Sink.API.BaseURL != "" {
		forward := sink.WithAPI(store, sink.NewAPISink(cfg.Sink.API.BaseURL, cfg.Sink.API.Token))
		writer, vaults, subscribers = forward, forward, forward
	}
	buffered := sink.NewBufferedWriter(writer, sink.BufferedOptions{
		BatchSize:     cfg.Sink.BatchSize,
		FlushInterval: time.Duration(cfg.Sink.FlushMaxMS) * time.Millisecond,
	})
	defer buffered.Close()

	metrics := extract.NewMetrics()
	extractor := extract.New(extract.SystemClock(), slog.Default(), metrics)

	h := harvester.New(bridge, extractor, buffered, harvester.Options{
		SurfaceID:    cfg.Bridge.SurfaceID,
		PassesPerSec: 1000.0 / float64(cfg.Harvest.PollIntervalMS),
		SessionPath:  cfg.Harvest.SessionFile,
	})
	h.SetCatalogWriters(vaults, subscribers)
	h.SetSessionConn(bridge)
	if err := h.WatchSessionFile(cfg.Harvest.SessionFile); err != nil {
		slog.Error("session watch unavailable", "err", err)
	}

	if cfg.HTTP.Addr != "" {
		api := httpapi.New(store, httpapi.Options{
			Addr:           cfg.HTTP.Addr,
			RateRPS:        cfg.HTTP.RateRPS,
			RateBurst:      cfg.HTTP.RateBurst,
			AccessLog:      true,
			ExtraGatherers: []prometheus.Gatherer{metrics.Registry()},
		})
		go func() {
			if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http api stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = api.Shutdown(shutdownCtx)
		}()
	}

	if err := h.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("harvester stopped: %v", err)
	}
	slog.Info("shutdown complete")
}
