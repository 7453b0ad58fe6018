// Package ids defines the small value types that identify posts and actors
// in the ATProto/Bluesky model: At-URIs, CIDs, handles, and DIDs.
package ids

import (
	"fmt"
	"strings"
)

// URI is an at:// URI identifying a record: at://<did>/<collection>/<rkey>.
type URI string

// Validate checks the at:// scheme and the did/collection/rkey shape.
// It does not resolve the DID or verify the collection exists.
func (u URI) Validate() error {
	s := string(u)
	if !strings.HasPrefix(s, "at://") {
		return fmt.Errorf("uri %q: missing at:// scheme", s)
	}
	rest := strings.TrimPrefix(s, "at://")
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("uri %q: expected at://<did>/<collection>/<rkey>", s)
	}
	if err := DID(parts[0]).Validate(); err != nil {
		return fmt.Errorf("uri %q: %w", s, err)
	}
	return nil
}

func (u URI) String() string { return string(u) }

// DID splits out the did portion of the URI, or "" if malformed.
func (u URI) DID() DID {
	rest := strings.TrimPrefix(string(u), "at://")
	if i := strings.Index(rest, "/"); i >= 0 {
		return DID(rest[:i])
	}
	return ""
}

// CID is an opaque content hash of a record. No structure is assumed beyond
// non-emptiness; the core never parses CID internals.
type CID string

func (c CID) Validate() error {
	if c == "" {
		return fmt.Errorf("cid: empty")
	}
	return nil
}

// Handle is a human-readable actor handle, e.g. "alice.bsky.social".
type Handle string

func (h Handle) Validate() error {
	s := string(h)
	if s == "" || !strings.Contains(s, ".") {
		return fmt.Errorf("handle %q: expected dotted domain-style handle", s)
	}
	return nil
}

// Normalize lowercases a handle for comparison; handles are case-insensitive.
func (h Handle) Normalize() Handle { return Handle(strings.ToLower(string(h))) }

// DID is a decentralized identifier, e.g. "did:plc:abc123".
type DID string

func (d DID) Validate() error {
	if !strings.HasPrefix(string(d), "did:") {
		return fmt.Errorf("did %q: expected did: prefix", d)
	}
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("did %q: expected did:<method>:<id>", d)
	}
	return nil
}

// NormalizeHashtag lowercases a hashtag and strips a leading '#'.
func NormalizeHashtag(tag string) string {
	tag = strings.TrimPrefix(tag, "#")
	return strings.ToLower(tag)
}

// DedupeHashtags returns tags lowercased, deduplicated, and in first-seen order.
func DedupeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeHashtag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
