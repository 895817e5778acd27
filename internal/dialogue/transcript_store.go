package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	transcriptKeyPrefix  = "survey:transcript:"
	defaultTranscriptTTL = 24 * time.Hour
)

// TranscriptStore mirrors dialogue transcripts into Redis so the survey
// pipeline can fetch them by reference after the session is evicted.
type TranscriptStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTranscriptStore creates a transcript store backed by Redis. A zero ttl
// falls back to 24h.
func NewTranscriptStore(rdb *redis.Client, ttl time.Duration) *TranscriptStore {
	if rdb == nil {
		panic("dialogue: transcript store redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &TranscriptStore{rdb: rdb, ttl: ttl}
}

func transcriptKey(callID string) string {
	return transcriptKeyPrefix + callID
}

// Ref returns the stable reference carried on survey events for the
// transcript of callID.
func (s *TranscriptStore) Ref(callID string) string {
	return transcriptKey(callID)
}

// Append adds one transcript entry and refreshes the key TTL.
func (s *TranscriptStore) Append(ctx context.Context, callID string, entry TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("dialogue: transcript marshal: %w", err)
	}
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, transcriptKey(callID), data)
	pipe.Expire(ctx, transcriptKey(callID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("dialogue: transcript append: %w", err)
	}
	return nil
}

// Load retrieves the full transcript for callID. Undecodable entries are
// skipped.
func (s *TranscriptStore) Load(ctx context.Context, callID string) ([]TranscriptEntry, error) {
	data, err := s.rdb.LRange(ctx, transcriptKey(callID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("dialogue: transcript load: %w", err)
	}
	entries := make([]TranscriptEntry, 0, len(data))
	for _, d := range data {
		var entry TranscriptEntry
		if err := json.Unmarshal([]byte(d), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
