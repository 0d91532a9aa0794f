package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Tier names the cache level an entry was found in.
type Tier string

const (
	// TierFast is the in-process tier.
	TierFast Tier = "fast"

	// TierShared is the redis or sqlite tier.
	TierShared Tier = "shared"
)

// Entry is one cached response. Entries are immutable once written: a
// newer Store replaces the entry, it never edits it. Callers must not
// modify Response.
type Entry struct {
	Fingerprint string
	Response    *providers.CompletionResponse
	CreatedAt   time.Time
	TTL         time.Duration
	Tier        Tier
}

// ExpiresAt returns CreatedAt + TTL.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Age returns how long ago the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// withTier returns a copy of e placed in tier.
func (e *Entry) withTier(tier Tier) *Entry {
	clone := *e
	clone.Tier = tier
	return &clone
}

// record is the shared-tier serialization of an Entry.
type record struct {
	Fingerprint string                        `json:"fingerprint"`
	Response    *providers.CompletionResponse `json:"response"`
	CreatedAt   time.Time                     `json:"created_at"`
	TTL         time.Duration                 `json:"ttl_ns"`
}

func encodeEntry(e *Entry) ([]byte, error) {
	return json.Marshal(record{
		Fingerprint: e.Fingerprint,
		Response:    e.Response,
		CreatedAt:   e.CreatedAt,
		TTL:         e.TTL,
	})
}

func decodeEntry(data []byte) (*Entry, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if r.Response == nil {
		return nil, fmt.Errorf("decode cache entry: missing response")
	}
	return &Entry{
		Fingerprint: r.Fingerprint,
		Response:    r.Response,
		CreatedAt:   r.CreatedAt,
		TTL:         r.TTL,
		Tier:        TierShared,
	}, nil
}
