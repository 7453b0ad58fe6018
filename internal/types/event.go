package types

import (
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/ids"
)

// EventTag identifies the variant of an Event for the on-disk tagged union.
type EventTag string

const (
	EventTagPostUpsert EventTag = "post_upsert"
	EventTagPostDelete EventTag = "post_delete"
)

// EventMeta carries provenance for an event: the channel it was fetched
// through, free-form command provenance, and the filter fingerprint (if any)
// that admitted it.
type EventMeta struct {
	Source            string    `json:"source"`
	Command           string    `json:"command,omitempty"`
	FilterFingerprint string    `json:"filter_fingerprint,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Event is the tagged union persisted by the event log: either a post
// upsert or a post delete.
type Event struct {
	Tag    EventTag  `json:"_tag"`
	Post   *Post     `json:"post,omitempty"`
	URI    ids.URI   `json:"uri,omitempty"`
	CID    ids.CID   `json:"cid,omitempty"`
	Meta   EventMeta `json:"meta"`
}

// NewPostUpsert builds a PostUpsert event.
func NewPostUpsert(p *Post, meta EventMeta) Event {
	return Event{Tag: EventTagPostUpsert, Post: p, Meta: meta}
}

// NewPostDelete builds a PostDelete event.
func NewPostDelete(uri ids.URI, cid ids.CID, meta EventMeta) Event {
	return Event{Tag: EventTagPostDelete, URI: uri, CID: cid, Meta: meta}
}

// EventRecord is what the log actually stores: a dense, strictly increasing
// sequence number plus a versioned event payload.
type EventRecord struct {
	Seq     uint64 `json:"seq"`
	Version uint32 `json:"version"`
	Event   Event  `json:"event"`
}

// CurrentEventVersion is the version stamped on newly appended events.
const CurrentEventVersion uint32 = 1

// IndexCheckpoint tracks how far the derived index has replayed the log.
type IndexCheckpoint struct {
	Name         string    `json:"name"`
	Version      uint32    `json:"version"`
	LastEventSeq uint64    `json:"last_event_seq"`
	EventCount   uint64    `json:"event_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PrimaryIndexName is the name of the built-in index checkpoint.
const PrimaryIndexName = "primary"

// SyncCheckpoint tracks resumable progress of one (store, source) pair.
type SyncCheckpoint struct {
	Source            string    `json:"source"`
	Cursor            string    `json:"cursor,omitempty"`
	LastEventSeq      *uint64   `json:"last_event_seq,omitempty"`
	FilterFingerprint string    `json:"filter_fingerprint,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DerivationMode selects when a derivation's filter is evaluated.
type DerivationMode string

const (
	ModeEventTime  DerivationMode = "event_time"
	ModeDeriveTime DerivationMode = "derive_time"
)

// DerivationCheckpoint tracks resumable progress of one (target, source) pair.
type DerivationCheckpoint struct {
	LastSourceEventSeq *uint64        `json:"last_source_event_seq,omitempty"`
	Mode               DerivationMode `json:"mode"`
	FilterFingerprint  string         `json:"filter_fingerprint"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// LineageSource describes one contributing source store to a derivation.
type LineageSource struct {
	Store     string    `json:"store"`
	Filter    string    `json:"filter"`
	Mode      DerivationMode `json:"mode"`
	DerivedAt time.Time `json:"derived_at"`
}

// Lineage records that a store is derived, and from what.
type Lineage struct {
	Target    string          `json:"target"`
	Derived   bool            `json:"derived"`
	Sources   []LineageSource `json:"sources"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StoreRef is a cheap-to-copy handle to a named store rooted at a path
// relative to the configured data root.
type StoreRef struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// StoreConfig holds per-store settings read once at open time.
type StoreConfig struct {
	DefaultSortBy   string `toml:"default_sort_by"`
	DefaultOrder    string `toml:"default_order"`
	DefaultPageSize int    `toml:"default_page_size"`
	FTSTokenizer    string `toml:"fts_tokenizer"`
}

// DefaultStoreConfig returns the configuration applied to a newly created store.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DefaultSortBy:   "created_at",
		DefaultOrder:    "desc",
		DefaultPageSize: 500,
		FTSTokenizer:    "unicode61",
	}
}
