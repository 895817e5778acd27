package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTranscriptStore(t *testing.T) (*TranscriptStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTranscriptStore(rdb, time.Hour), mr
}

func TestTranscriptStore_AppendAndLoad(t *testing.T) {
	store, _ := newTestTranscriptStore(t)
	ctx := context.Background()

	entries := []TranscriptEntry{
		{Speaker: SpeakerAgent, Text: "Do you consent?", Timestamp: time.Now().UTC()},
		{Speaker: SpeakerUser, Text: "yes", Timestamp: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := store.Append(ctx, "call-1", e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.Load(ctx, "call-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries: got %d, want 2", len(got))
	}
	if got[0].Speaker != SpeakerAgent || got[1].Text != "yes" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestTranscriptStore_LoadEmpty(t *testing.T) {
	store, _ := newTestTranscriptStore(t)

	got, err := store.Load(context.Background(), "missing-call")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("entries: got %d, want 0", len(got))
	}
}

func TestTranscriptStore_SetsTTL(t *testing.T) {
	store, mr := newTestTranscriptStore(t)

	if err := store.Append(context.Background(), "call-2", TranscriptEntry{Speaker: SpeakerUser, Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if ttl := mr.TTL(store.Ref("call-2")); ttl <= 0 {
		t.Errorf("ttl: got %v, want positive", ttl)
	}
}

func TestTranscriptStore_Ref(t *testing.T) {
	store, _ := newTestTranscriptStore(t)
	if ref := store.Ref("abc"); ref != "survey:transcript:abc" {
		t.Errorf("ref: got %q", ref)
	}
}
