// Package harvester drives repeated extraction passes over live snapshots.
package harvester

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/you/fanharvest/internal/extract"
	"github.com/you/fanharvest/internal/identity"
	"github.com/you/fanharvest/internal/sink"
	"github.com/you/fanharvest/internal/surface"
)

// SessionConn receives fresh session tokens when the session file changes.
type SessionConn interface {
	UpdateSession(token string) error
}

// Harvester owns one markup source, one extractor and one sink, and re-runs
// the pure extraction pass at a rate-limited cadence. Consecutive passes make
// no ordering promise beyond "a later snapshot reflects a later or equal page
// state"; idempotent sinks absorb the overlap.
type Harvester struct {
	source    surface.MarkupSource
	extractor *extract.Extractor
	writer    sink.Writer
	surfaceID string
	limiter   *rate.Limiter
	log       *slog.Logger

	mu          sync.Mutex
	session     SessionConn
	sessionPath string

	vaults      sink.VaultWriter
	subscribers sink.SubscriberWriter
}

type Options struct {
	SurfaceID string
	// PassesPerSec caps the snapshot/extract cadence; <= 0 means one pass
	// per second.
	PassesPerSec float64
	SessionPath  string
}

func New(source surface.MarkupSource, extractor *extract.Extractor, writer sink.Writer, opts Options) *Harvester {
	pps := opts.PassesPerSec
	if pps <= 0 {
		pps = 1
	}
	return &Harvester{
		source:      source,
		extractor:   extractor,
		writer:      writer,
		surfaceID:   opts.SurfaceID,
		limiter:     rate.NewLimiter(rate.Limit(pps), 1),
		log:         slog.Default(),
		sessionPath: opts.SessionPath,
	}
}

// SetCatalogWriters wires the optional stores for vault and subscriber
// snapshots. The vault page and the subscriber list render on the same
// surface as the chat; a pass over either stores what it finds.
func (h *Harvester) SetCatalogWriters(vaults sink.VaultWriter, subscribers sink.SubscriberWriter) {
	h.vaults = vaults
	h.subscribers = subscribers
}

// SetSessionConn wires the collaborator that accepts reloaded session tokens.
func (h *Harvester) SetSessionConn(conn SessionConn) {
	h.mu.Lock()
	h.session = conn
	h.mu.Unlock()
}

// Run polls until ctx is done. A failed pass is logged and the loop
// continues; the next snapshot starts from scratch anyway.
func (h *Harvester) Run(ctx context.Context) error {
	for {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := h.Pass(ctx); err != nil {
			h.log.Error("extraction pass failed", "surface", h.surfaceID, "err", err)
		}
	}
}

// Pass performs one snapshot-extract-store cycle. An empty snapshot or a
// document without a selected thread is "no data yet", not an error.
func (h *Harvester) Pass(ctx context.Context) error {
	markup, err := h.source.SerializedMarkup(ctx, h.surfaceID)
	if err != nil {
		return fmt.Errorf("fetch markup: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		h.log.Debug("empty snapshot, nothing to harvest", "surface", h.surfaceID)
		return nil
	}

	doc, err := extract.ParseDocument(markup)
	if err != nil {
		return err
	}

	h.storeCatalog(ctx, doc)

	thread, err := h.extractor.Thread(doc)
	if err != nil {
		return err
	}
	if thread == nil {
		h.log.Debug("no thread selected", "surface", h.surfaceID)
		return nil
	}

	thread.Messages = identity.MergeRuns(thread.Messages)

	if err := h.writer.WriteThread(ctx, *thread); err != nil {
		return fmt.Errorf("write thread: %w", err)
	}
	h.log.Info("pass complete",
		"account", thread.AccountID,
		"user", thread.UserID,
		"messages", len(thread.Messages),
		"payments", len(thread.Payments),
	)
	return nil
}

// storeCatalog persists vault and subscriber records when the snapshot shows
// those pages. Failures are logged, never fail the pass: the chat thread is
// the primary payload.
func (h *Harvester) storeCatalog(ctx context.Context, doc *goquery.Document) {
	if h.vaults != nil {
		if vault := h.extractor.Vault(doc); vault != nil {
			if err := h.vaults.WriteVault(ctx, *vault); err != nil {
				h.log.Error("write vault failed", "name", vault.Name, "err", err)
			}
		}
	}
	if h.subscribers != nil {
		if subs := h.extractor.Subscribers(doc); len(subs) > 0 {
			if err := h.subscribers.WriteSubscribers(ctx, subs); err != nil {
				h.log.Error("write subscribers failed", "count", len(subs), "err", err)
			}
		}
	}
}

// ReloadSession re-reads the session token file and pushes it to the host.
func (h *Harvester) ReloadSession() error {
	h.mu.Lock()
	conn := h.session
	path := h.sessionPath
	h.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("session connection unavailable")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("session file not configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("session token empty")
	}
	if err := conn.UpdateSession(token); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	slog.Info("session token reloaded", "path", path)
	return nil
}
