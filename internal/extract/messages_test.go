package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/you/fanharvest/internal/core"
)

const chatFixture = `<html><body>
<div class="b-header__user">
  <a href="/u999"><span class="g-user-name">StudioNova</span></a>
</div>
<div class="b-chat__header">
  <a class="g-avatar__link" href="/u348251"></a>
  <span class="g-user-name">Fan Guy</span>
  <span class="g-user-realname__text">Whale #3</span>
</div>
<div class="b-chats__scrollbar">
  <div class="b-chat__messages-timeline" title="Apr 25">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_1">
        <div class="b-chat__message__text">hey there</div>
      </div>
      <div class="b-chat__message m-from-me" id="message_2">
        <div class="b-chat__message__media">
          <div class="b-chat__message__media-item">
            <video poster="https://cdn2.example.com/files/a/b2/thumb/poster.jpg"></video>
          </div>
          <div class="b-chat__message__media-item">
            <img src="https://cdn2.example.com/files/a/c9/full/pic.jpg">
          </div>
        </div>
        <div class="b-chat__message__purchase">$130 not paid yet</div>
        <svg data-icon-name="done-all"></svg>
      </div>
      <span class="b-chat__message__time">9:45 am</span>
    </div>
  </div>
  <div class="b-chat__messages-timeline" title="Today">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_3">
        <div class="b-chat__message__tip">I sent you a $5.00 tip</div>
        <div class="b-chat__message__text">keep it up!</div>
        <span class="b-chat__message__time">1:05 pm</span>
      </div>
    </div>
  </div>
</div>
</body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExtractor() *Extractor {
	return New(fixedClock(), testLogger(), nil)
}

func mustThread(t *testing.T, markup string) *core.Thread {
	t.Helper()
	doc, err := ParseDocument(markup)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	thread, err := testExtractor().Thread(doc)
	if err != nil {
		t.Fatalf("extract thread: %v", err)
	}
	if thread == nil {
		t.Fatalf("expected a thread, got nil")
	}
	return thread
}

func TestThreadProfileFields(t *testing.T) {
	res := mustThread(t, chatFixture)

	if res.AccountID != "999" {
		t.Fatalf("expected account id 999, got %q", res.AccountID)
	}
	if res.AccountName != "StudioNova" {
		t.Fatalf("expected account name StudioNova, got %q", res.AccountName)
	}
	if res.UserID != "348251" {
		t.Fatalf("expected user id 348251, got %q", res.UserID)
	}
	if res.Username != "Fan Guy" {
		t.Fatalf("expected username Fan Guy, got %q", res.Username)
	}
	if res.CustomUsername != "Whale #3" {
		t.Fatalf("expected custom name Whale #3, got %q", res.CustomUsername)
	}
}

func TestThreadMessages(t *testing.T) {
	res := mustThread(t, chatFixture)

	if len(res.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(res.Messages))
	}

	first := res.Messages[0]
	if first.Content != "hey there" || first.Role != "user" {
		t.Fatalf("unexpected first message: %+v", first)
	}
	if first.Time != "2024-04-25T06:45:00.000Z" {
		t.Fatalf("expected section time on text message, got %q", first.Time)
	}

	media := res.Messages[1]
	if media.Role != "influencer" {
		t.Fatalf("expected influencer media message, got %q", media.Role)
	}
	if media.Content != "<video, image>" {
		t.Fatalf("unexpected media content %q", media.Content)
	}
	if len(media.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(media.Attachments))
	}
	if media.Attachments[0].Type != "video" || media.Attachments[1].Type != "image" {
		t.Fatalf("unexpected attachment kinds: %+v", media.Attachments)
	}

	tip := res.Messages[2]
	if tip.Content != "<$5_tip> keep it up!" {
		t.Fatalf("unexpected tip content %q", tip.Content)
	}
	if tip.Time != "2024-05-01T10:05:00.000Z" {
		t.Fatalf("expected Today resolved against the clock, got %q", tip.Time)
	}
}

func TestThreadIDsAreIdempotent(t *testing.T) {
	a := mustThread(t, chatFixture)
	b := mustThread(t, chatFixture)

	if len(a.Messages) != len(b.Messages) {
		t.Fatalf("pass sizes differ: %d vs %d", len(a.Messages), len(b.Messages))
	}
	for i := range a.Messages {
		if a.Messages[i].ID == "" {
			t.Fatalf("message %d has empty id", i)
		}
		if a.Messages[i].ID != b.Messages[i].ID {
			t.Fatalf("message %d id changed between identical passes", i)
		}
	}
}

func TestThreadIDsAreSensitiveToContent(t *testing.T) {
	a := mustThread(t, chatFixture)
	b := mustThread(t, strings.Replace(chatFixture, "hey there", "hey you", 1))

	if a.Messages[0].ID == b.Messages[0].ID {
		t.Fatalf("expected content change to change the id")
	}
	// Untouched messages keep their identity.
	if a.Messages[1].ID != b.Messages[1].ID {
		t.Fatalf("expected unrelated message id to be stable")
	}
}

func TestThreadNilWhenNoContainer(t *testing.T) {
	doc, err := ParseDocument(`<html><body><p>nothing selected</p></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	thread, err := testExtractor().Thread(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thread != nil {
		t.Fatalf("expected nil thread for missing container, got %+v", thread)
	}
}

func TestThreadEmptySnapshot(t *testing.T) {
	doc, err := ParseDocument("")
	if err != nil {
		t.Fatalf("empty snapshot must parse: %v", err)
	}
	thread, err := testExtractor().Thread(doc)
	if err != nil || thread != nil {
		t.Fatalf("expected (nil, nil) for empty snapshot, got (%v, %v)", thread, err)
	}
}

func TestMediaClassification(t *testing.T) {
	fixture := `<html><body>
<div class="b-chats__scrollbar">
  <div class="b-chat__messages-timeline" title="Apr 25">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_20">
        <div class="b-chat__message__media">
          <div class="b-chat__message__media-item">
            <div class="m-gif" style="background-image: url('https://cdn2.example.com/files/g/if/gif1/anim.gif');"></div>
          </div>
          <div class="b-chat__message__media-item">
            <div class="b-chat__message__audio"><span class="audio-duration">0:42</span></div>
          </div>
          <span class="b-chat__message__time">4:10 pm</span>
          <span class="b-chat__message__payment-state">not purchased</span>
        </div>
      </div>
      <span class="b-chat__message__time">4:10 pm</span>
    </div>
  </div>
</div>
</body></html>`

	res := mustThread(t, fixture)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Content != "<unpurchased image, unpurchased audio>" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Type != "image" || msg.Attachments[0].URL != "https://cdn2.example.com/files/g/if/gif1/anim.gif" {
		t.Fatalf("gif should map to image with its background url: %+v", msg.Attachments[0])
	}
	if msg.Attachments[1].Type != "audio" || msg.Attachments[1].URL != "audio0:42" {
		t.Fatalf("audio should synthesize a duration url: %+v", msg.Attachments[1])
	}
}

func TestTipSuppressionOnCurlyQuote(t *testing.T) {
	fixture := `<html><body>
<div class="b-chats__scrollbar">
  <div class="b-chat__messages-timeline" title="Apr 25">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_21">
        <div class="b-chat__message__tip">I sent you a $10.00 tip</div>
        <div class="b-chat__message__text">` + "“" + `quoted back at you</div>
        <span class="b-chat__message__time">4:10 pm</span>
      </div>
    </div>
  </div>
</div>
</body></html>`

	res := mustThread(t, fixture)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	if !strings.HasPrefix(res.Messages[0].Content, "“") {
		t.Fatalf("curly-quoted note must stay verbatim, got %q", res.Messages[0].Content)
	}
	if strings.Contains(res.Messages[0].Content, "_tip") {
		t.Fatalf("tip tag must be suppressed, got %q", res.Messages[0].Content)
	}
}

func TestTipForPost(t *testing.T) {
	fixture := `<html><body>
<div class="b-chats__scrollbar">
  <div class="b-chat__messages-timeline" title="Apr 25">
    <div class="b-chat__message-group">
      <div class="b-chat__message" id="message_22">
        <div class="b-chat__message__tip">I sent you a $12.50 tip under this post</div>
        <span class="b-chat__message__time">4:10 pm</span>
      </div>
    </div>
  </div>
</div>
</body></html>`

	res := mustThread(t, fixture)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	if res.Messages[0].Content != "<$12.5_tip_for_post>" {
		t.Fatalf("unexpected tip-for-post content %q", res.Messages[0].Content)
	}
}
