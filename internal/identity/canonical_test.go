package identity

import (
	"testing"

	"github.com/you/fanharvest/internal/core"
)

func TestCanonicalJSONIgnoresKeyOrder(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"y": true, "x": false}}
	b := map[string]any{"nested": map[string]any{"x": false, "y": true}, "a": 1, "b": 2}

	ca, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if ca != cb {
		t.Fatalf("expected identical serializations:\n%s\n%s", ca, cb)
	}
	if ca != `{"a":1,"b":2,"nested":{"x":false,"y":true}}` {
		t.Fatalf("unexpected canonical form %s", ca)
	}
}

func TestCanonicalJSONPreservesArrayOrder(t *testing.T) {
	got, err := CanonicalJSON([]any{3, 1, 2})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != `[3,1,2]` {
		t.Fatalf("array order must survive, got %s", got)
	}
}

func TestHexUTF16(t *testing.T) {
	// "A" is a single code unit 0x41.
	if got := HexUTF16("A"); got != "41" {
		t.Fatalf("expected 41, got %q", got)
	}
	// One astral rune is a surrogate pair: two code units.
	if got := HexUTF16("\U0001F600"); got != "d83dde00" {
		t.Fatalf("expected surrogate pair d83dde00, got %q", got)
	}
}

func testMessage() core.Message {
	return core.Message{
		Role:    core.RoleUser,
		Content: "<image>",
		Time:    "2024-04-25T06:45:00.000Z",
		Attachments: []core.Attachment{
			{Type: core.MediaImage, URL: "https://cdn/x/y/z", Paid: core.PaidUnpurchased},
		},
	}
}

func TestMessageIDDeterministic(t *testing.T) {
	a, err := MessageID(testMessage(), "seed")
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	b, err := MessageID(testMessage(), "seed")
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	if a == "" || a != b {
		t.Fatalf("expected stable non-empty id, got %q vs %q", a, b)
	}
}

func TestMessageIDIgnoresURLAndBadge(t *testing.T) {
	base, _ := MessageID(testMessage(), "seed")

	moved := testMessage()
	moved.Attachments[0].URL = "https://cdn/other/link"
	moved.Attachments[0].Paid = core.PaidPurchased
	got, _ := MessageID(moved, "seed")

	if got != base {
		t.Fatalf("url and badge churn must not change the id")
	}
}

func TestMessageIDSensitive(t *testing.T) {
	base, _ := MessageID(testMessage(), "seed")

	changed := testMessage()
	changed.Content = "<video>"
	if got, _ := MessageID(changed, "seed"); got == base {
		t.Fatalf("content change must change the id")
	}

	role := testMessage()
	role.Role = core.RoleInfluencer
	if got, _ := MessageID(role, "seed"); got == base {
		t.Fatalf("role change must change the id")
	}

	if got, _ := MessageID(testMessage(), "other-seed"); got == base {
		t.Fatalf("different attachment seed must change the id")
	}
}

func TestMessageIDDoesNotMutateInput(t *testing.T) {
	msg := testMessage()
	if _, err := MessageID(msg, "seed"); err != nil {
		t.Fatalf("id: %v", err)
	}
	if msg.Attachments[0].URL != "https://cdn/x/y/z" {
		t.Fatalf("input attachment mutated: %+v", msg.Attachments[0])
	}
}

func TestMergeRuns(t *testing.T) {
	media := func(id, content string) core.Message {
		return core.Message{
			ID:      id,
			Role:    core.RoleInfluencer,
			Content: content,
			Attachments: []core.Attachment{
				{Type: core.MediaImage, URL: "https://cdn/a/b/" + id},
			},
		}
	}

	msgs := []core.Message{
		media("m1", "<image>"),
		media("m2", "<image>"),
		{ID: "m3", Role: core.RoleInfluencer, Content: "hello"},
		media("m4", "<video>"),
	}

	merged := MergeRuns(msgs)
	if len(merged) != 3 {
		t.Fatalf("expected 3 messages after merge, got %d", len(merged))
	}
	if merged[0].Content != "<image> <image>" {
		t.Fatalf("unexpected merged content %q", merged[0].Content)
	}
	if len(merged[0].Attachments) != 2 {
		t.Fatalf("expected concatenated attachments, got %d", len(merged[0].Attachments))
	}
	if merged[0].ID == "m1" || merged[0].ID == "" {
		t.Fatalf("merged record must carry a recomputed id, got %q", merged[0].ID)
	}
	if merged[1].Content != "hello" {
		t.Fatalf("prose message must not merge, got %q", merged[1].Content)
	}
	if merged[2].Content != "<video>" {
		t.Fatalf("run broken by prose must stay separate, got %q", merged[2].Content)
	}
}

func TestMergeRunsDifferentRoles(t *testing.T) {
	msgs := []core.Message{
		{Role: core.RoleUser, Content: "<image>", Attachments: []core.Attachment{{Type: core.MediaImage}}},
		{Role: core.RoleInfluencer, Content: "<image>", Attachments: []core.Attachment{{Type: core.MediaImage}}},
	}
	if got := MergeRuns(msgs); len(got) != 2 {
		t.Fatalf("cross-role runs must not merge, got %d", len(got))
	}
}
