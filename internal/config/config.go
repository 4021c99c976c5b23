package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

type Config struct {
	Sinks   []string
	Sink    SinkConfig
	Bridge  BridgeConfig
	Harvest HarvestConfig
	HTTP    HTTPConfig
}

type SinkConfig struct {
	SQLite     SQLiteConfig
	API        APIConfig
	BatchSize  int
	FlushMaxMS int
}

type SQLiteConfig struct {
	Path string
}

type APIConfig struct {
	BaseURL string
	Token   string
}

type BridgeConfig struct {
	URL       string
	SurfaceID string
}

type HarvestConfig struct {
	PollIntervalMS int
	SessionFile    string
}

type HTTPConfig struct {
	Addr      string
	RateRPS   int
	RateBurst int
}

const (
	defaultSQLitePath = "harvest.db"
	defaultBatchSize  = 1
	defaultFlushMS    = 0
	defaultPollMS     = 5000
	defaultSurfaceID  = "chat"
	defaultRateRPS    = 20
	defaultRateBurst  = 40
)

func Load() Config {
	cfg := Config{}

	raw := strings.TrimSpace(os.Getenv("FH_SINKS"))
	if raw == "" {
		raw = "sqlite"
	}
	cfg.Sinks = splitList(raw)

	cfg.Sink.SQLite.Path = strings.TrimSpace(os.Getenv("FH_SINK_SQLITE_PATH"))
	if cfg.Sink.SQLite.Path == "" {
		cfg.Sink.SQLite.Path = defaultSQLitePath
	}
	cfg.Sink.API.BaseURL = strings.TrimSpace(os.Getenv("FH_SINK_API_URL"))
	cfg.Sink.API.Token = strings.TrimSpace(os.Getenv("FH_SINK_API_TOKEN"))
	cfg.Sink.BatchSize = readInt("FH_SINK_BATCH_SIZE", defaultBatchSize)
	cfg.Sink.FlushMaxMS = readInt("FH_SINK_FLUSH_MAX_MS", defaultFlushMS)

	cfg.Bridge.URL = strings.TrimSpace(os.Getenv("FH_BRIDGE_URL"))
	cfg.Bridge.SurfaceID = strings.TrimSpace(os.Getenv("FH_SURFACE_ID"))
	if cfg.Bridge.SurfaceID == "" {
		cfg.Bridge.SurfaceID = defaultSurfaceID
	}

	cfg.Harvest.PollIntervalMS = readInt("FH_POLL_INTERVAL_MS", defaultPollMS)
	cfg.Harvest.SessionFile = strings.TrimSpace(os.Getenv("FH_SESSION_FILE"))

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("FH_HTTP_ADDR"))
	cfg.HTTP.RateRPS = readInt("FH_HTTP_RATE_RPS", defaultRateRPS)
	cfg.HTTP.RateBurst = readInt("FH_HTTP_RATE_BURST", defaultRateBurst)

	return cfg
}

// HasSink reports whether name is among the configured sinks.
func (c Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Summary is the loggable view of the configuration with secrets redacted.
type Summary struct {
	Sinks          []string
	SQLitePath     string
	APIBaseURL     string
	APIToken       string
	BatchSize      int
	FlushMaxMS     int
	BridgeURL      string
	SurfaceID      string
	PollIntervalMS int
	SessionFile    string
	HTTPAddr       string
}

func (c Config) Summary() Summary {
	return Summary{
		Sinks:          append([]string(nil), c.Sinks...),
		SQLitePath:     c.Sink.SQLite.Path,
		APIBaseURL:     c.Sink.API.BaseURL,
		APIToken:       redactString(c.Sink.API.Token),
		BatchSize:      c.Sink.BatchSize,
		FlushMaxMS:     c.Sink.FlushMaxMS,
		BridgeURL:      c.Bridge.URL,
		SurfaceID:      c.Bridge.SurfaceID,
		PollIntervalMS: c.Harvest.PollIntervalMS,
		SessionFile:    c.Harvest.SessionFile,
		HTTPAddr:       c.HTTP.Addr,
	}
}

func redactString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	sort.Strings(out)
	return out
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}
