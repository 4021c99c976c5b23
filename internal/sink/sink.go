// Package sink delivers normalized extraction results to storage.
package sink

import (
	"context"

	"github.com/you/fanharvest/internal/core"
)

// Writer accepts the result of one extraction pass. Writes must be
// idempotent: the extractors emit content-addressed ids and per-pass unique
// payment times precisely so that replaying a pass is harmless.
type Writer interface {
	WriteThread(ctx context.Context, thread core.Thread) error
}

// VaultWriter stores the active vault category scraped off a vault snapshot.
type VaultWriter interface {
	WriteVault(ctx context.Context, vault core.Vault) error
}

// SubscriberWriter stores the current subscriber list.
type SubscriberWriter interface {
	WriteSubscribers(ctx context.Context, subs []core.Subscriber) error
}
