package harvester

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/you/fanharvest/internal/core"
	"github.com/you/fanharvest/internal/extract"
	"github.com/you/fanharvest/internal/surface"
)

const passFixture = `<html><body>
<div class="b-header__user"><a href="/u999"><span class="g-user-name">StudioNova</span></a></div>
<div class="b-chat__header">
  <a href="/u42"></a>
  <span class="g-user-name">fan</span>
</div>
<div class="b-chats__scrollbar">
  <div class="b-chat__messages-timeline" title="Apr 25 2024">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_1">
        <div class="b-chat__message__text">hello</div>
      </div>
      <span class="b-chat__message__time">9:45 am</span>
    </div>
  </div>
</div>
</body></html>`

type threadCapture struct {
	mu      sync.Mutex
	threads []core.Thread
}

func (c *threadCapture) WriteThread(_ context.Context, t core.Thread) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads = append(c.threads, t)
	return nil
}

func fixedClock() extract.FixedClock {
	return extract.FixedClock{
		Instant: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC),
		Zone:    time.UTC,
	}
}

func TestPassWritesThread(t *testing.T) {
	src := surface.SourceFunc(func(context.Context, string) (string, error) {
		return passFixture, nil
	})
	store := &threadCapture{}
	h := New(src, extract.New(fixedClock(), nil, nil), store, Options{SurfaceID: "chat"})

	if err := h.Pass(context.Background()); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(store.threads) != 1 {
		t.Fatalf("expected one thread written, got %d", len(store.threads))
	}
	thread := store.threads[0]
	if thread.AccountID != "999" || thread.UserID != "42" {
		t.Fatalf("unexpected thread identity: %+v", thread)
	}
	if len(thread.Messages) != 1 || thread.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", thread.Messages)
	}
}

type catalogCapture struct {
	mu     sync.Mutex
	vaults []core.Vault
	subs   [][]core.Subscriber
}

func (c *catalogCapture) WriteVault(_ context.Context, v core.Vault) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vaults = append(c.vaults, v)
	return nil
}

func (c *catalogCapture) WriteSubscribers(_ context.Context, subs []core.Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, subs)
	return nil
}

func TestPassStoresCatalogSnapshots(t *testing.T) {
	const vaultFixture = `<html><body>
<div class="b-header__user"><a href="/u999"></a></div>
<div class="b-photos__category m-active">
  <span class="b-photos__category__name">Customs</span>
  <span class="b-photos__category__count">12</span>
</div>
<div class="b-users__item">
  <a href="/u101"><span class="g-user-name">alice</span></a>
  <span class="b-users__item__price">$9.99</span>
</div>
</body></html>`

	src := surface.SourceFunc(func(context.Context, string) (string, error) {
		return vaultFixture, nil
	})
	catalog := &catalogCapture{}
	h := New(src, extract.New(fixedClock(), nil, nil), &threadCapture{}, Options{SurfaceID: "vault"})
	h.SetCatalogWriters(catalog, catalog)

	if err := h.Pass(context.Background()); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(catalog.vaults) != 1 || catalog.vaults[0].Name != "Customs" || catalog.vaults[0].MediaCount != 12 {
		t.Fatalf("unexpected vault writes: %+v", catalog.vaults)
	}
	if len(catalog.subs) != 1 || len(catalog.subs[0]) != 1 || catalog.subs[0][0].UserName != "alice" {
		t.Fatalf("unexpected subscriber writes: %+v", catalog.subs)
	}
}

func TestPassEmptySnapshotIsNotAnError(t *testing.T) {
	src := surface.SourceFunc(func(context.Context, string) (string, error) {
		return "", nil
	})
	store := &threadCapture{}
	h := New(src, extract.New(fixedClock(), nil, nil), store, Options{SurfaceID: "chat"})

	if err := h.Pass(context.Background()); err != nil {
		t.Fatalf("empty snapshot must not fail: %v", err)
	}
	if len(store.threads) != 0 {
		t.Fatalf("expected no writes, got %d", len(store.threads))
	}
}

func TestPassNoThreadSelected(t *testing.T) {
	src := surface.SourceFunc(func(context.Context, string) (string, error) {
		return "<html><body><p>pick a chat</p></body></html>", nil
	})
	store := &threadCapture{}
	h := New(src, extract.New(fixedClock(), nil, nil), store, Options{SurfaceID: "chat"})

	if err := h.Pass(context.Background()); err != nil {
		t.Fatalf("missing thread must not fail: %v", err)
	}
	if len(store.threads) != 0 {
		t.Fatalf("expected no writes, got %d", len(store.threads))
	}
}

func TestPassPropagatesFetchFailure(t *testing.T) {
	src := surface.SourceFunc(func(context.Context, string) (string, error) {
		return "", errors.New("bridge gone")
	})
	h := New(src, extract.New(fixedClock(), nil, nil), &threadCapture{}, Options{SurfaceID: "chat"})

	if err := h.Pass(context.Background()); err == nil {
		t.Fatalf("expected fetch failure to surface")
	}
}

func TestReloadSessionRequiresConfiguration(t *testing.T) {
	h := New(nil, extract.New(fixedClock(), nil, nil), &threadCapture{}, Options{})
	if err := h.ReloadSession(); err == nil {
		t.Fatalf("expected error without a session connection")
	}
}
