package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/you/fanharvest/internal/core"
)

// APISink forwards normalized payloads to the agency REST backend. The
// backend deduplicates on message ids server-side; this client only reports
// transport and status failures.
type APISink struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPISink(baseURL, token string) *APISink {
	return &APISink{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *APISink) WriteThread(ctx context.Context, thread core.Thread) error {
	path := fmt.Sprintf("/accounts/%s/threads/%s", thread.AccountID, thread.UserID)
	return a.put(ctx, path, thread)
}

// WriteVault publishes the active vault record.
func (a *APISink) WriteVault(ctx context.Context, vault core.Vault) error {
	return a.put(ctx, fmt.Sprintf("/accounts/%s/vault", vault.AccountID), vault)
}

// WriteSubscribers publishes the current subscriber list. The bearer token
// scopes the list to an account on the backend side.
func (a *APISink) WriteSubscribers(ctx context.Context, subs []core.Subscriber) error {
	return a.put(ctx, "/subscribers", subs)
}

func (a *APISink) put(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send payload")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return errors.Errorf("api sink: %s %s: %s", path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}
