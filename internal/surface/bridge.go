package surface

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Topic identifies a stream of host-process events.
type Topic string

const (
	// TopicSnapshot carries unsolicited markup snapshots pushed by the host.
	TopicSnapshot Topic = "snapshot"
	// TopicNavigation carries page navigation notices.
	TopicNavigation Topic = "navigation"
	// TopicSession carries session/cookie state changes.
	TopicSession Topic = "session"
)

const (
	topicMarkupRequest = Topic("markup_request")
	topicMarkupReply   = Topic("markup_reply")
	topicSessionUpdate = Topic("session_update")
)

type envelope struct {
	Topic     Topic           `json:"topic"`
	RequestID string          `json:"request_id,omitempty"`
	SurfaceID string          `json:"surface_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Bridge is the websocket connection to the webview host process. It owns its
// connection lifecycle and dispatches host events to typed-topic subscribers;
// nothing in the program shares socket state with it.
type Bridge struct {
	url string
	log *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  uint64
	pending map[string]chan envelope
	subs    map[Topic]map[chan json.RawMessage]struct{}
	closed  bool
}

// Dial connects to the host bridge and starts the read loop.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial bridge")
	}
	conn.SetReadLimit(32 << 20) // full-page snapshots are large

	b := &Bridge{
		url:     url,
		log:     logger,
		conn:    conn,
		pending: make(map[string]chan envelope),
		subs:    make(map[Topic]map[chan json.RawMessage]struct{}),
	}
	go b.readLoop()
	return b, nil
}

// SerializedMarkup asks the host for the current outer HTML of a surface.
func (b *Bridge) SerializedMarkup(ctx context.Context, surfaceID string) (string, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", errors.New("bridge closed")
	}
	conn := b.conn
	b.nextID++
	reqID := "req-" + strconv.FormatUint(b.nextID, 10)
	reply := make(chan envelope, 1)
	b.pending[reqID] = reply
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, reqID)
		b.mu.Unlock()
	}()

	req := envelope{Topic: topicMarkupRequest, RequestID: reqID, SurfaceID: surfaceID}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return "", errors.Wrap(err, "request markup")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case env := <-reply:
		if env.Error != "" {
			// The host could not serialize the surface; deliver "no data yet"
			// rather than a hard failure.
			b.log.Debug("markup fetch failed on host", "surface", surfaceID, "err", env.Error)
			return "", nil
		}
		var markup string
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &markup); err != nil {
				return "", errors.Wrap(err, "decode markup payload")
			}
		}
		return markup, nil
	}
}

// UpdateSession forwards a fresh session token to the host process.
func (b *Bridge) UpdateSession(token string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bridge closed")
	}
	conn := b.conn
	b.mu.Unlock()

	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Wrap(
		wsjson.Write(ctx, conn, envelope{Topic: topicSessionUpdate, Payload: payload}),
		"send session update",
	)
}

// Subscribe registers for events on a topic. The returned cancel func must be
// called to release the subscription; slow subscribers drop events rather
// than stall the read loop.
func (b *Bridge) Subscribe(topic Topic) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, 64)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan json.RawMessage]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[topic]; ok {
			delete(set, ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Close shuts the connection down and wakes every pending request.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conn := b.conn
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.mu.Unlock()

	return conn.Close(websocket.StatusNormalClosure, "shutting down")
}

func (b *Bridge) readLoop() {
	ctx := context.Background()
	for {
		var env envelope
		if err := wsjson.Read(ctx, b.conn, &env); err != nil {
			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				b.log.Error("bridge read failed", "err", err)
				_ = b.Close()
			}
			return
		}
		b.dispatch(env)
	}
}

func (b *Bridge) dispatch(env envelope) {
	if env.Topic == topicMarkupReply && env.RequestID != "" {
		b.mu.Lock()
		reply, ok := b.pending[env.RequestID]
		if ok {
			delete(b.pending, env.RequestID)
		}
		b.mu.Unlock()
		if ok {
			reply <- env
		}
		return
	}

	b.mu.Lock()
	var targets []chan json.RawMessage
	for ch := range b.subs[env.Topic] {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- env.Payload:
		default:
			b.log.Debug("dropping event for slow subscriber", "topic", env.Topic)
		}
	}
}
