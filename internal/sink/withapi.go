package sink

import (
	"context"
	"log/slog"

	"github.com/you/fanharvest/internal/core"
)

// WithForward decorates the local store with a REST forward. The local write
// is authoritative; a forwarding failure is logged and retried implicitly on
// the next pass, never surfaced as a pass failure.
type WithForward struct {
	*SQLiteSink
	api *APISink
}

func WithAPI(base *SQLiteSink, api *APISink) *WithForward {
	return &WithForward{SQLiteSink: base, api: api}
}

func (w *WithForward) WriteThread(ctx context.Context, thread core.Thread) error {
	if err := w.SQLiteSink.WriteThread(ctx, thread); err != nil {
		return err
	}
	if w.api != nil {
		if err := w.api.WriteThread(ctx, thread); err != nil {
			slog.Warn("api forward failed", "account", thread.AccountID, "err", err)
		}
	}
	return nil
}

func (w *WithForward) WriteVault(ctx context.Context, vault core.Vault) error {
	if err := w.SQLiteSink.WriteVault(ctx, vault); err != nil {
		return err
	}
	if w.api != nil {
		if err := w.api.WriteVault(ctx, vault); err != nil {
			slog.Warn("api vault forward failed", "account", vault.AccountID, "err", err)
		}
	}
	return nil
}

func (w *WithForward) WriteSubscribers(ctx context.Context, subs []core.Subscriber) error {
	if err := w.SQLiteSink.WriteSubscribers(ctx, subs); err != nil {
		return err
	}
	if w.api != nil {
		if err := w.api.WriteSubscribers(ctx, subs); err != nil {
			slog.Warn("api subscriber forward failed", "count", len(subs), "err", err)
		}
	}
	return nil
}
